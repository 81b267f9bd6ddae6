package handlers

import (
	"net/http"

	"github.com/careerpilot/careerpilot-backend/internal/auth"
	"github.com/careerpilot/careerpilot-backend/internal/dtos"
	"github.com/careerpilot/careerpilot-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

// UpdateUser is the PUT /user endpoint used by onboarding and profile edit.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req dtos.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	if err := h.Users.UpdateUser(auth.Principal(c), &req); err != nil {
		c.JSON(statusForServiceError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dtos.UpdateUserResponse{Success: true})
}

// OnboardingStatus is the GET /user/onboarding-status endpoint the frontend
// gates the dashboard and onboarding pages on.
func (h *UserHandler) OnboardingStatus(c *gin.Context) {
	status, err := h.Users.GetOnboardingStatus(auth.Principal(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
