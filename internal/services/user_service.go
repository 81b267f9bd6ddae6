package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careerpilot/careerpilot-backend/internal/dtos"
	"github.com/careerpilot/careerpilot-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// profileTxTimeout bounds the user-write transaction. The slow insight
// generation happens before the transaction opens, so the lock hold time
// stays short.
const profileTxTimeout = 10 * time.Second

type UserService struct {
	DB       *gorm.DB
	LLM      *LLMService
	Insights *InsightService
	Logger   *zap.SugaredLogger
}

func NewUserService(db *gorm.DB, llm *LLMService, insights *InsightService, log *zap.SugaredLogger) *UserService {
	return &UserService{DB: db, LLM: llm, Insights: insights, Logger: log}
}

// UpdateUser handles the onboarding / profile-edit write path. When the user
// picks an industry with no stored insight yet, the externally-bound
// generation step runs first, outside the transaction; the fast transactional
// write of the user row then commits regardless of how generation went.
func (s *UserService) UpdateUser(authID string, req *dtos.UpdateUserRequest) error {
	if authID == "" {
		return ErrUnauthorized
	}

	var user models.User
	err := s.DB.Where("auth_user_id = ?", authID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	industrySlug := normalizeIndustrySlug(req.Industry)

	// Slow stage: make sure an insight exists for the new industry before
	// the user row points at it. Generation never fails outright, so a
	// degraded Gemini only means a fallback payload, never an aborted
	// profile update.
	var generated *dtos.InsightPayload
	if industrySlug != nil {
		existing, err := s.Insights.FindByIndustry(*industrySlug)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		if existing == nil {
			result := s.LLM.GenerateInsights(*industrySlug)
			generated = &result.Payload
			if result.Fallback {
				s.Logger.Warnw("insight generation degraded to fallback during profile update",
					"industry", *industrySlug)
			}
		}
	}

	skills := []string(req.Skills)
	if skills == nil {
		skills = []string{}
	}

	// Fast stage: short, bounded transaction for the user row, plus the
	// freshly generated insight when there is one. A concurrent onboarder
	// may have inserted the same insight in the meantime; CreateIfAbsent
	// absorbs that race.
	ctx, cancel := context.WithTimeout(context.Background(), profileTxTimeout)
	defer cancel()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if industrySlug != nil && generated != nil {
			if _, _, err := s.Insights.CreateIfAbsent(tx, *industrySlug, *generated); err != nil {
				return err
			}
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"industry":   industrySlug,
			"experience": req.Experience,
			"bio":        strings.TrimSpace(req.Bio),
			"skills":     mustJSON(skills),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.Logger.Infow("user profile updated", "user_id", user.ID, "industry", industrySlug)
	return nil
}

// GetOnboardingStatus reports whether the user has picked an industry.
// A missing principal or user row reads as "not onboarded" rather than an
// error, matching how the onboarding gate treats it.
func (s *UserService) GetOnboardingStatus(authID string) (dtos.OnboardingStatus, error) {
	if authID == "" {
		return dtos.OnboardingStatus{}, nil
	}

	var user models.User
	err := s.DB.Select("industry").Where("auth_user_id = ?", authID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dtos.OnboardingStatus{}, nil
	}
	if err != nil {
		return dtos.OnboardingStatus{}, fmt.Errorf("looking up user: %w", err)
	}
	return dtos.OnboardingStatus{IsOnboarded: user.Industry != nil}, nil
}

// normalizeIndustrySlug trims the submitted industry; empty or
// whitespace-only means "clear industry" and maps to nil.
func normalizeIndustrySlug(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
