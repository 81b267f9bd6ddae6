package database

import (
	"fmt"
	"os"

	"github.com/careerpilot/careerpilot-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection and runs migrations. The DSN comes
// from DATABASE_URL, falling back to discrete PG_* variables for local dev.
func Connect(log *zap.SugaredLogger) *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			envOr("PG_HOST", "localhost"),
			envOr("PG_USER", "postgres"),
			envOr("PG_PASSWORD", "password"),
			envOr("PG_DATABASE", "careerpilot"),
			envOr("PG_PORT", "5432"),
			envOr("PG_SSLMODE", "disable"),
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	log.Info("database connection established")

	log.Info("running migrations")
	if err := db.AutoMigrate(&models.User{}, &models.IndustryInsight{}); err != nil {
		log.Fatalw("migration failed", "error", err)
	}
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
