package handlers

import (
	"errors"
	"net/http"

	"github.com/careerpilot/careerpilot-backend/internal/auth"
	"github.com/careerpilot/careerpilot-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type InsightHandler struct {
	Insights *services.InsightService
}

func NewInsightHandler(insights *services.InsightService) *InsightHandler {
	return &InsightHandler{Insights: insights}
}

// GetInsights is the GET /insights endpoint backing the dashboard.
// 204 means "no industry picked yet", which the frontend renders as the
// onboarding nudge rather than an error state.
func (h *InsightHandler) GetInsights(c *gin.Context) {
	insight, err := h.Insights.GetIndustryInsights(auth.Principal(c))
	if err != nil {
		status := statusForServiceError(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if insight == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    insight,
	})
}

func statusForServiceError(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
