package main

import (
	"log"
	"os"

	"github.com/careerpilot/careerpilot-backend/internal/auth"
	"github.com/careerpilot/careerpilot-backend/internal/database"
	"github.com/careerpilot/careerpilot-backend/internal/handlers"
	"github.com/careerpilot/careerpilot-backend/internal/logger"
	"github.com/careerpilot/careerpilot-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	zlog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = zlog.Sync() }()

	// 2. Database Connection
	db := database.Connect(zlog)

	// 3. Initialize Core Services
	llmService := services.NewLLMService(zlog)
	insightService := services.NewInsightService(db, llmService, zlog)
	userService := services.NewUserService(db, llmService, insightService, zlog)

	// 4. Stale-Insight Refresh Watcher (opt-in via INSIGHT_REFRESH_ENABLED)
	refreshService := services.NewRefreshService(db, llmService, zlog)
	refreshService.StartWatcher()

	// 5. Initialize Handlers
	insightHandler := handlers.NewInsightHandler(insightService)
	userHandler := handlers.NewUserHandler(userService)

	// 6. Setup Router & CORS
	r := gin.Default()
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true // For development only
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))
	r.Use(auth.Authenticate())

	// 7. Define Routes
	api := r.Group("/api/v1")
	{
		api.GET("/health", handlers.HealthCheck)

		api.GET("/insights", insightHandler.GetInsights)

		api.PUT("/user", userHandler.UpdateUser)
		api.GET("/user/onboarding-status", userHandler.OnboardingStatus)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	zlog.Infow("server starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		zlog.Fatalw("server failed to start", "error", err)
	}
}
