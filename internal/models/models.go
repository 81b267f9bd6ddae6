package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Subject claim of the auth provider's token
	AuthUserID string `gorm:"uniqueIndex;not null" json:"auth_user_id"`
	Email      string `gorm:"uniqueIndex" json:"email"`
	Name       string `json:"name"`

	// Industry is nil until the user finishes onboarding.
	// It references IndustryInsight.Industry by slug.
	Industry   *string        `gorm:"index" json:"industry"`
	Experience *int           `json:"experience"`
	Bio        string         `gorm:"type:text" json:"bio"`
	Skills     datatypes.JSON `json:"skills"`
}

// IndustryInsight holds one generated labor-market report per industry slug.
// Rows are created at most once per slug; concurrent first-access is resolved
// by the unique index on Industry (see InsightService.CreateIfAbsent).
type IndustryInsight struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Industry string `gorm:"uniqueIndex;not null" json:"industry"`

	SalaryRanges      datatypes.JSON `json:"salary_ranges"`
	GrowthRate        float64        `json:"growth_rate"`
	DemandLevel       string         `json:"demand_level"`
	TopSkills         datatypes.JSON `json:"top_skills"`
	MarketOutlook     string         `json:"market_outlook"`
	KeyTrends         datatypes.JSON `json:"key_trends"`
	RecommendedSkills datatypes.JSON `json:"recommended_skills"`

	// NextUpdate marks when the report goes stale. Only the refresh
	// watcher reads it; the interactive paths never do.
	NextUpdate time.Time `json:"next_update"`
}
