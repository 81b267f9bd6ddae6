package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/careerpilot/careerpilot-backend/internal/dtos"
	"github.com/careerpilot/careerpilot-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insightTTL is how long a generated report stays fresh.
const insightTTL = 7 * 24 * time.Hour

type InsightService struct {
	DB     *gorm.DB
	LLM    *LLMService
	Logger *zap.SugaredLogger
}

func NewInsightService(db *gorm.DB, llm *LLMService, log *zap.SugaredLogger) *InsightService {
	return &InsightService{DB: db, LLM: llm, Logger: log}
}

// FindByIndustry is a point lookup. A missing row is (nil, nil), not an error.
func (s *InsightService) FindByIndustry(industry string) (*models.IndustryInsight, error) {
	var insight models.IndustryInsight
	err := s.DB.Where("industry = ?", industry).First(&insight).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &insight, nil
}

// CreateIfAbsent inserts the insight row unless one already exists for the
// industry. The unique index decides who wins a concurrent race: losers get
// the winner's row back with created=false instead of an error. It runs on
// the given handle so the profile coordinator can call it inside its
// transaction.
func (s *InsightService) CreateIfAbsent(tx *gorm.DB, industry string, payload dtos.InsightPayload) (*models.IndustryInsight, bool, error) {
	row := newInsightRow(industry, payload)

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "industry"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Another writer won the race; its row is authoritative.
		var existing models.IndustryInsight
		if err := tx.Where("industry = ?", industry).First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	return row, true, nil
}

// GetIndustryInsights is the dashboard's entry point. It resolves the
// principal's user row, returns nil when the user has not picked an
// industry, serves the stored insight when one exists, and otherwise
// generates and persists one. Generation-path failures degrade to the
// fallback payload; only missing-principal and missing-user propagate.
func (s *InsightService) GetIndustryInsights(authID string) (*dtos.InsightResponse, error) {
	if authID == "" {
		return nil, ErrUnauthorized
	}

	var user models.User
	err := s.DB.Where("auth_user_id = ?", authID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	// Not onboarded yet. The dashboard treats nil as "insights
	// unavailable", which is distinct from any error.
	if user.Industry == nil {
		return nil, nil
	}
	industry := *user.Industry

	existing, err := s.FindByIndustry(industry)
	if err != nil {
		return nil, fmt.Errorf("looking up industry insight: %w", err)
	}
	if existing != nil {
		return s.toResponse(existing), nil
	}

	result := s.LLM.GenerateInsights(industry)
	row, created, err := s.CreateIfAbsent(s.DB, industry, result.Payload)
	if err != nil {
		// An interactive caller never sees a hard error for this path.
		// Serve a well-formed fallback and let the next request retry
		// the persist.
		s.Logger.Errorw("persisting industry insight failed, serving fallback",
			"industry", industry, "error", err)
		now := time.Now()
		return &dtos.InsightResponse{
			Industry:       industry,
			InsightPayload: ClampPayload(FallbackInsights()),
			CreatedAt:      now,
			UpdatedAt:      now,
			NextUpdate:     now.Add(insightTTL),
		}, nil
	}
	if created {
		s.Logger.Infow("industry insight created",
			"industry", industry, "fallback", result.Fallback)
	}
	return s.toResponse(row), nil
}

func (s *InsightService) toResponse(row *models.IndustryInsight) *dtos.InsightResponse {
	payload := dtos.InsightPayload{
		GrowthRate:    row.GrowthRate,
		DemandLevel:   row.DemandLevel,
		MarketOutlook: row.MarketOutlook,
	}
	decodeJSONColumn(row.SalaryRanges, &payload.SalaryRanges)
	decodeJSONColumn(row.TopSkills, &payload.TopSkills)
	decodeJSONColumn(row.KeyTrends, &payload.KeyTrends)
	decodeJSONColumn(row.RecommendedSkills, &payload.RecommendedSkills)

	return &dtos.InsightResponse{
		Industry:       row.Industry,
		InsightPayload: ClampPayload(payload),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		NextUpdate:     row.NextUpdate,
	}
}

func newInsightRow(industry string, payload dtos.InsightPayload) *models.IndustryInsight {
	p := ClampPayload(payload)
	return &models.IndustryInsight{
		Industry:          industry,
		SalaryRanges:      mustJSON(p.SalaryRanges),
		GrowthRate:        p.GrowthRate,
		DemandLevel:       p.DemandLevel,
		TopSkills:         mustJSON(p.TopSkills),
		MarketOutlook:     p.MarketOutlook,
		KeyTrends:         mustJSON(p.KeyTrends),
		RecommendedSkills: mustJSON(p.RecommendedSkills),
		NextUpdate:        time.Now().Add(insightTTL),
	}
}

func decodeJSONColumn(col datatypes.JSON, dst any) {
	if len(col) == 0 {
		return
	}
	// A corrupt column falls back to the zero value; ClampPayload fills it.
	_ = json.Unmarshal(col, dst)
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable type, which these are not.
		panic(err)
	}
	return datatypes.JSON(b)
}
