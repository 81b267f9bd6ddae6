package dtos

import "time"

type SalaryRange struct {
	Role     string  `json:"role"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Location string  `json:"location"`
}

// InsightPayload is the canonical insight shape, minus the fields the store
// owns (industry key and timestamps).
type InsightPayload struct {
	SalaryRanges      []SalaryRange `json:"salary_ranges"`
	GrowthRate        float64       `json:"growth_rate"`
	DemandLevel       string        `json:"demand_level"`
	TopSkills         []string      `json:"top_skills"`
	MarketOutlook     string        `json:"market_outlook"`
	KeyTrends         []string      `json:"key_trends"`
	RecommendedSkills []string      `json:"recommended_skills"`
}

// InsightResponse is what the dashboard consumes.
type InsightResponse struct {
	Industry string `json:"industry"`
	InsightPayload
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	NextUpdate time.Time `json:"next_update"`
}
