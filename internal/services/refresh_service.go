package services

import (
	"context"
	"os"
	"time"

	"github.com/careerpilot/careerpilot-backend/internal/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// refreshCycleTimeout bounds one sweep over the stale rows.
const refreshCycleTimeout = 2 * time.Minute

// RefreshService regenerates insights whose next_update has passed. It is
// the only path that updates an insight row in place, and it runs entirely
// outside the interactive request flows. Opt-in via INSIGHT_REFRESH_ENABLED.
type RefreshService struct {
	DB     *gorm.DB
	LLM    *LLMService
	Logger *zap.SugaredLogger

	cron *cron.Cron
}

func NewRefreshService(db *gorm.DB, llm *LLMService, log *zap.SugaredLogger) *RefreshService {
	return &RefreshService{DB: db, LLM: llm, Logger: log}
}

// StartWatcher schedules the hourly sweep and runs one immediately.
func (s *RefreshService) StartWatcher() {
	if os.Getenv("INSIGHT_REFRESH_ENABLED") != "true" {
		s.Logger.Info("insight refresh watcher disabled")
		return
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@hourly", s.RefreshStale); err != nil {
		s.Logger.Errorw("failed to schedule insight refresh", "error", err)
		return
	}
	s.cron.Start()
	go s.RefreshStale()
	s.Logger.Info("insight refresh watcher started")
}

// Stop halts the schedule; an in-flight sweep finishes on its own.
func (s *RefreshService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RefreshStale regenerates every insight whose next_update is in the past.
// Fallback payloads are skipped: canned data must never overwrite a real
// report, so a degraded run simply leaves the row stale for the next sweep.
func (s *RefreshService) RefreshStale() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshCycleTimeout)
	defer cancel()

	var stale []models.IndustryInsight
	if err := s.DB.WithContext(ctx).Where("next_update <= ?", time.Now()).Find(&stale).Error; err != nil {
		s.Logger.Errorw("listing stale insights failed", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}
	s.Logger.Infow("refreshing stale insights", "count", len(stale))

	refreshed := 0
	for _, row := range stale {
		result := s.LLM.GenerateInsights(row.Industry)
		if result.Fallback {
			s.Logger.Warnw("skipping refresh, generation degraded to fallback",
				"industry", row.Industry)
			continue
		}
		p := ClampPayload(result.Payload)
		err := s.DB.WithContext(ctx).Model(&models.IndustryInsight{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"salary_ranges":      mustJSON(p.SalaryRanges),
				"growth_rate":        p.GrowthRate,
				"demand_level":       p.DemandLevel,
				"top_skills":         mustJSON(p.TopSkills),
				"market_outlook":     p.MarketOutlook,
				"key_trends":         mustJSON(p.KeyTrends),
				"recommended_skills": mustJSON(p.RecommendedSkills),
				"next_update":        time.Now().Add(insightTTL),
			}).Error
		if err != nil {
			s.Logger.Errorw("updating refreshed insight failed",
				"industry", row.Industry, "error", err)
			continue
		}
		refreshed++
	}
	s.Logger.Infow("insight refresh sweep finished", "stale", len(stale), "refreshed", refreshed)
}
