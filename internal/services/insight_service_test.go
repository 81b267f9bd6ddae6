package services

import (
	"sync"
	"testing"
	"time"

	"github.com/careerpilot/careerpilot-backend/internal/dtos"
	"github.com/careerpilot/careerpilot-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

func newInsightService(t *testing.T, model *fakeModel) *InsightService {
	t.Helper()
	return NewInsightService(newTestDB(t), newTestLLM(model), zap.NewNop().Sugar())
}

func payloadWithGrowth(rate float64) dtos.InsightPayload {
	p := FallbackInsights()
	p.GrowthRate = rate
	return p
}

func TestCreateIfAbsentInserts(t *testing.T) {
	svc := newInsightService(t, &fakeModel{})

	row, created, err := svc.CreateIfAbsent(svc.DB, "finance", payloadWithGrowth(7))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "finance", row.Industry)
	assert.Equal(t, float64(7), row.GrowthRate)
	assert.WithinDuration(t, time.Now().Add(insightTTL), row.NextUpdate, 5*time.Second)
}

func TestCreateIfAbsentSecondWriterLosesQuietly(t *testing.T) {
	svc := newInsightService(t, &fakeModel{})

	_, created, err := svc.CreateIfAbsent(svc.DB, "finance", payloadWithGrowth(7))
	require.NoError(t, err)
	require.True(t, created)

	row, created, err := svc.CreateIfAbsent(svc.DB, "finance", payloadWithGrowth(99))
	require.NoError(t, err)
	assert.False(t, created)
	// The first writer's payload stays authoritative.
	assert.Equal(t, float64(7), row.GrowthRate)

	var count int64
	require.NoError(t, svc.DB.Model(&models.IndustryInsight{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateIfAbsentConcurrentSameKey(t *testing.T) {
	svc := newInsightService(t, &fakeModel{})

	const writers = 10
	var wg sync.WaitGroup
	createdCount := make(chan bool, writers)
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, created, err := svc.CreateIfAbsent(svc.DB, "data-science", payloadWithGrowth(float64(n)))
			if err != nil {
				errs <- err
				return
			}
			createdCount <- created
		}(i)
	}
	wg.Wait()
	close(errs)
	close(createdCount)

	for err := range errs {
		t.Fatalf("concurrent create returned error: %v", err)
	}

	wins := 0
	for created := range createdCount {
		if created {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one writer should win the race")

	var count int64
	require.NoError(t, svc.DB.Model(&models.IndustryInsight{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetIndustryInsightsNoPrincipal(t *testing.T) {
	svc := newInsightService(t, &fakeModel{})

	_, err := svc.GetIndustryInsights("")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetIndustryInsightsUnknownUser(t *testing.T) {
	svc := newInsightService(t, &fakeModel{})

	_, err := svc.GetIndustryInsights("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetIndustryInsightsNoIndustryShortCircuits(t *testing.T) {
	model := &fakeModel{respond: func(call int, prompt string) (string, error) {
		t.Fatal("generator must not be invoked for a user without an industry")
		return "", nil
	}}
	svc := newInsightService(t, model)
	newTestUser(t, svc.DB, "user-1", nil)

	got, err := svc.GetIndustryInsights("user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, model.callCount())

	var count int64
	require.NoError(t, svc.DB.Model(&models.IndustryInsight{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetIndustryInsightsGeneratesOnFirstUse(t *testing.T) {
	model := &fakeModel{respond: func(call int, prompt string) (string, error) {
		return validInsightJSON, nil
	}}
	svc := newInsightService(t, model)
	newTestUser(t, svc.DB, "user-1", strPtr("data-science"))

	got, err := svc.GetIndustryInsights("user-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "data-science", got.Industry)
	assert.Len(t, got.SalaryRanges, 5)
	assert.Equal(t, "High", got.DemandLevel)
	assert.WithinDuration(t, got.CreatedAt.Add(insightTTL), got.NextUpdate, 2*time.Second)

	var row models.IndustryInsight
	require.NoError(t, svc.DB.Where("industry = ?", "data-science").First(&row).Error)
	assert.Equal(t, 12.5, row.GrowthRate)
}

func TestGetIndustryInsightsIdempotentReEntry(t *testing.T) {
	model := &fakeModel{respond: func(call int, prompt string) (string, error) {
		return validInsightJSON, nil
	}}
	svc := newInsightService(t, model)
	newTestUser(t, svc.DB, "user-1", strPtr("data-science"))

	first, err := svc.GetIndustryInsights("user-1")
	require.NoError(t, err)
	second, err := svc.GetIndustryInsights("user-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.callCount(), "second read must not regenerate")
}

func TestGetIndustryInsightsServesExistingWithoutGeneration(t *testing.T) {
	model := &fakeModel{respond: func(call int, prompt string) (string, error) {
		t.Fatal("generator must not run when an insight already exists")
		return "", nil
	}}
	svc := newInsightService(t, model)
	newTestUser(t, svc.DB, "user-1", strPtr("finance"))

	_, created, err := svc.CreateIfAbsent(svc.DB, "finance", payloadWithGrowth(7))
	require.NoError(t, err)
	require.True(t, created)

	got, err := svc.GetIndustryInsights("user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, float64(7), got.GrowthRate)
	assert.Equal(t, 0, model.callCount())
}

func TestGetIndustryInsightsDegradesToFallbackWhenGeneratorDown(t *testing.T) {
	model := &fakeModel{respond: func(call int, prompt string) (string, error) {
		return "", &googleapi.Error{Code: 503}
	}}
	svc := newInsightService(t, model)
	newTestUser(t, svc.DB, "user-1", strPtr("underwater-basket-weaving"))

	got, err := svc.GetIndustryInsights("user-1")
	require.NoError(t, err, "generation failure must not surface to the caller")
	require.NotNil(t, got)

	assert.Equal(t, "underwater-basket-weaving", got.Industry)
	assert.Equal(t, 5.0, got.GrowthRate)
	assert.Equal(t, "Medium", got.DemandLevel)
	assert.Equal(t, ClampPayload(FallbackInsights()), got.InsightPayload)
	assert.Equal(t, generateAttempts, model.callCount())
}

func TestGetIndustryInsightsNormalizesDirtyStoredRow(t *testing.T) {
	svc := newInsightService(t, &fakeModel{})
	newTestUser(t, svc.DB, "user-1", strPtr("finance"))

	// A row that slipped into storage with junk fields must still come
	// out well-formed.
	require.NoError(t, svc.DB.Create(&models.IndustryInsight{
		Industry:      "finance",
		DemandLevel:   "BONKERS",
		MarketOutlook: "",
		NextUpdate:    time.Now().Add(insightTTL),
	}).Error)

	got, err := svc.GetIndustryInsights("user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Medium", got.DemandLevel)
	assert.Equal(t, "Neutral", got.MarketOutlook)
	assert.NotNil(t, got.SalaryRanges)
	assert.NotNil(t, got.TopSkills)
}
