package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/careerpilot/careerpilot-backend/internal/dtos"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

const (
	insightModel = "gemini-2.5-flash"

	// Retry budget for one GenerateInsights call. Only transient failures
	// (503, timeout) consume the delayed retries; anything else is terminal.
	generateAttempts  = 3
	generateBaseDelay = 1 * time.Second

	// Hard cap per attempt. The model API has no intrinsic bound, so the
	// client enforces its own regardless of the caller.
	generateTimeout = 8 * time.Second
)

const insightPrompt = `
Analyze the current state of the %s industry and provide insights in ONLY the following JSON format without any additional notes or explanations:
{
  "salaryRanges": [
    { "role": "string", "min": number, "max": number, "median": number, "location": "string" }
  ],
  "growthRate": number,
  "demandLevel": "High" | "Medium" | "Low",
  "topSkills": ["skill1", "skill2"],
  "marketOutlook": "Positive" | "Neutral" | "Negative",
  "keyTrends": ["trend1", "trend2"],
  "recommendedSkills": ["skill1", "skill2"]
}

IMPORTANT: Return ONLY the JSON. No additional text, notes, or markdown formatting.
Include at least 5 common roles for salary ranges.
Growth rate should be a percentage.
Include at least 5 skills and trends.
`

type LLMService struct {
	Client llms.Model
	Logger *zap.SugaredLogger

	// RetryBaseDelay overrides the backoff base; zero means the default.
	RetryBaseDelay time.Duration
}

func NewLLMService(log *zap.SugaredLogger) *LLMService {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY is empty, did you load the .env file?")
	}

	llm, err := googleai.New(context.Background(),
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(insightModel),
	)
	if err != nil {
		log.Fatalw("failed to create Gemini client", "error", err)
	}

	return &LLMService{Client: llm, Logger: log}
}

// InsightResult carries the payload plus whether it came from the canned
// fallback instead of a live generation. Callers always get a usable
// payload either way; the flag exists for logging and for the refresh
// watcher, which must not overwrite real data with canned data.
type InsightResult struct {
	Payload  dtos.InsightPayload
	Fallback bool
}

// GenerateInsights produces the labor-market report for an industry slug.
// It retries transient failures with doubling backoff up to the attempt
// budget, and on exhaustion (or a terminal error such as unparsable output)
// degrades to the fixed fallback payload. It never returns an error.
func (s *LLMService) GenerateInsights(industry string) InsightResult {
	delay := s.RetryBaseDelay
	if delay <= 0 {
		delay = generateBaseDelay
	}

	for attempt := 1; attempt <= generateAttempts; attempt++ {
		payload, err := s.generateOnce(industry)
		if err == nil {
			return InsightResult{Payload: payload}
		}
		if !isTransient(err) {
			s.Logger.Warnw("insight generation failed, serving fallback",
				"industry", industry, "error", err)
			break
		}
		if attempt == generateAttempts {
			s.Logger.Warnw("insight generation retries exhausted, serving fallback",
				"industry", industry, "attempts", attempt, "error", err)
			break
		}
		s.Logger.Warnw("insight generation hit transient error, retrying",
			"industry", industry, "attempt", attempt, "delay", delay, "error", err)
		time.Sleep(delay)
		delay *= 2
	}

	return InsightResult{Payload: FallbackInsights(), Fallback: true}
}

func (s *LLMService) generateOnce(industry string) (dtos.InsightPayload, error) {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	prompt := fmt.Sprintf(insightPrompt, industry)
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt)
	if err != nil {
		return dtos.InsightPayload{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripCodeFences(resp)), &raw); err != nil {
		return dtos.InsightPayload{}, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	return NormalizeInsights(raw), nil
}

// stripCodeFences removes the ```json wrappers the model sometimes adds
// despite the prompt's instructions.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// isTransient reports whether the error is worth a delayed retry: the
// service saying it is temporarily unavailable, or our own attempt timeout.
func isTransient(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == 503
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE")
}

// FallbackInsights is the hand-authored payload served when live generation
// cannot succeed within the retry budget.
func FallbackInsights() dtos.InsightPayload {
	return dtos.InsightPayload{
		SalaryRanges: []dtos.SalaryRange{
			{Role: "Entry Level", Min: 40000, Max: 70000, Median: 55000, Location: "Remote"},
			{Role: "Mid Level", Min: 60000, Max: 100000, Median: 80000, Location: "Remote"},
			{Role: "Senior Level", Min: 90000, Max: 150000, Median: 120000, Location: "Remote"},
			{Role: "Team Lead", Min: 110000, Max: 170000, Median: 140000, Location: "Remote"},
			{Role: "Manager", Min: 120000, Max: 190000, Median: 155000, Location: "Remote"},
		},
		GrowthRate:    5.0,
		DemandLevel:   defaultDemandLevel,
		TopSkills:     []string{"Communication", "Problem Solving", "Teamwork", "Adaptability", "Time Management"},
		MarketOutlook: defaultMarketOutlook,
		KeyTrends: []string{
			"Remote and hybrid work",
			"AI-assisted workflows",
			"Upskilling and continuous learning",
			"Data-driven decision making",
			"Sustainability initiatives",
		},
		RecommendedSkills: []string{"Data Literacy", "Project Management", "Digital Collaboration", "Critical Thinking", "Domain Fundamentals"},
	}
}
