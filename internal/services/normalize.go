package services

import (
	"strings"

	"github.com/careerpilot/careerpilot-backend/internal/dtos"
)

var (
	demandLevels   = []string{"High", "Medium", "Low"}
	marketOutlooks = []string{"Positive", "Neutral", "Negative"}
)

const (
	defaultDemandLevel   = "Medium"
	defaultMarketOutlook = "Neutral"
)

// NormalizeInsights coerces an arbitrary decoded JSON object into the
// canonical insight payload. It never fails: missing or wrong-typed fields
// get safe defaults, so downstream consumers never see malformed data.
// The keys match the schema the model is prompted with.
func NormalizeInsights(raw map[string]any) dtos.InsightPayload {
	return dtos.InsightPayload{
		SalaryRanges:      toSalaryRanges(raw["salaryRanges"]),
		GrowthRate:        toNumber(raw["growthRate"]),
		DemandLevel:       clampEnum(raw["demandLevel"], demandLevels, defaultDemandLevel),
		TopSkills:         toStringSlice(raw["topSkills"]),
		MarketOutlook:     clampEnum(raw["marketOutlook"], marketOutlooks, defaultMarketOutlook),
		KeyTrends:         toStringSlice(raw["keyTrends"]),
		RecommendedSkills: toStringSlice(raw["recommendedSkills"]),
	}
}

// ClampPayload re-applies the enum and slice guarantees to an already typed
// payload. Records read back from storage go through this so that a row that
// slipped in with bad optional fields is still served safely.
func ClampPayload(p dtos.InsightPayload) dtos.InsightPayload {
	if !containsFold(demandLevels, p.DemandLevel) {
		p.DemandLevel = defaultDemandLevel
	} else {
		p.DemandLevel = canonicalEnum(demandLevels, p.DemandLevel)
	}
	if !containsFold(marketOutlooks, p.MarketOutlook) {
		p.MarketOutlook = defaultMarketOutlook
	} else {
		p.MarketOutlook = canonicalEnum(marketOutlooks, p.MarketOutlook)
	}
	if p.SalaryRanges == nil {
		p.SalaryRanges = []dtos.SalaryRange{}
	}
	if p.TopSkills == nil {
		p.TopSkills = []string{}
	}
	if p.KeyTrends == nil {
		p.KeyTrends = []string{}
	}
	if p.RecommendedSkills == nil {
		p.RecommendedSkills = []string{}
	}
	return p
}

func clampEnum(v any, allowed []string, fallback string) string {
	s, ok := v.(string)
	if !ok || !containsFold(allowed, s) {
		return fallback
	}
	return canonicalEnum(allowed, s)
}

func containsFold(allowed []string, s string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return true
		}
	}
	return false
}

func canonicalEnum(allowed []string, s string) string {
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return a
		}
	}
	return s
}

func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toSalaryRanges(v any) []dtos.SalaryRange {
	out := []dtos.SalaryRange{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, dtos.SalaryRange{
			Role:     toString(entry["role"]),
			Min:      toNumber(entry["min"]),
			Max:      toNumber(entry["max"]),
			Median:   toNumber(entry["median"]),
			Location: toString(entry["location"]),
		})
	}
	return out
}
