package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/careerpilot/careerpilot-backend/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One connection keeps concurrent writers from tripping over sqlite's
	// database-level lock; the conflict path still gets exercised.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.IndustryInsight{}))
	return db
}

// fakeModel implements llms.Model with a scripted response per attempt.
type fakeModel struct {
	mu      sync.Mutex
	calls   int
	respond func(call int, prompt string) (string, error)
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	prompt := ""
	if len(messages) > 0 {
		for _, part := range messages[0].Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	if m.respond == nil {
		return nil, fmt.Errorf("fakeModel: unexpected call %d", call)
	}
	text, err := m.respond(call, prompt)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestLLM(model llms.Model) *LLMService {
	return &LLMService{
		Client:         model,
		Logger:         zap.NewNop().Sugar(),
		RetryBaseDelay: time.Millisecond,
	}
}

// validInsightJSON is a well-formed model response with five roles, skills,
// and trends, matching what the prompt asks for.
const validInsightJSON = `{
	"salaryRanges": [
		{"role": "Data Analyst", "min": 60000, "max": 95000, "median": 78000, "location": "Remote"},
		{"role": "Data Scientist", "min": 90000, "max": 150000, "median": 120000, "location": "New York"},
		{"role": "ML Engineer", "min": 110000, "max": 180000, "median": 145000, "location": "San Francisco"},
		{"role": "Data Engineer", "min": 95000, "max": 155000, "median": 125000, "location": "Remote"},
		{"role": "Analytics Manager", "min": 120000, "max": 190000, "median": 150000, "location": "Chicago"}
	],
	"growthRate": 12.5,
	"demandLevel": "High",
	"topSkills": ["Python", "SQL", "Machine Learning", "Statistics", "Communication"],
	"marketOutlook": "Positive",
	"keyTrends": ["GenAI adoption", "Real-time analytics", "Data governance", "Cloud warehousing", "MLOps"],
	"recommendedSkills": ["Python", "dbt", "Spark", "LLM tooling", "Experiment design"]
}`

func newTestUser(t *testing.T, db *gorm.DB, authID string, industry *string) *models.User {
	t.Helper()
	user := &models.User{
		AuthUserID: authID,
		Email:      authID + "@example.com",
		Industry:   industry,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func strPtr(s string) *string { return &s }
