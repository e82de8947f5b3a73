package forecast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/platform/cache"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/health"
)

// -- Mock repository --

type mockRepo struct {
	results []*Result
	creates int
}

func (m *mockRepo) Create(_ context.Context, r *Result) error {
	m.creates++
	m.results = append(m.results, r)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Result, error) {
	for _, r := range m.results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*Result, int, error) {
	var out []*Result
	for _, r := range m.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func testConfig() *config.Config {
	return &config.Config{
		EnableTimeSeriesForecasting: true,
		MaxDataPointsPerRequest:     10000,
		MaxForecastHorizonDays:      90,
		ForecastCacheTTL:            time.Hour,
	}
}

func series(values ...float64) []health.DataPoint {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	points := make([]health.DataPoint, len(values))
	for i, v := range values {
		points[i] = health.DataPoint{
			UserID:    "u1",
			Metric:    "heart_rate",
			Value:     v,
			Timestamp: base.AddDate(0, 0, i),
		}
	}
	return points
}

func newTestService(repo Repository) *Service {
	return NewService(testConfig(), repo, cache.NewMemoryStore(), zerolog.Nop())
}

func TestGenerate_ExampleScenario(t *testing.T) {
	svc := newTestService(&mockRepo{})

	result, err := svc.Generate(context.Background(), "u1", "heart_rate", "3-days", series(10, 12, 11, 13, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Predictions) != 3 {
		t.Fatalf("got %d predictions, want 3", len(result.Predictions))
	}
	wantConf := []float64{0.8, 0.7, 0.6}
	for i, p := range result.Predictions {
		if p.Confidence != wantConf[i] {
			t.Errorf("prediction %d confidence = %v, want %v", i, p.Confidence, wantConf[i])
		}
	}
	if result.Model != "linear" {
		t.Errorf("model = %q, want linear for 5 points", result.Model)
	}
}

func TestGenerate_MonotonicConfidenceFloor(t *testing.T) {
	svc := newTestService(&mockRepo{})

	result, err := svc.Generate(context.Background(), "u1", "steps", "2-weeks", series(1, 2, 3, 4, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Predictions) != 14 {
		t.Fatalf("got %d predictions, want 14", len(result.Predictions))
	}

	prev := 1.0
	for i, p := range result.Predictions {
		if p.Confidence > prev {
			t.Errorf("prediction %d: confidence %v increased from %v", i, p.Confidence, prev)
		}
		if p.Confidence < 0.1 {
			t.Errorf("prediction %d: confidence %v below floor 0.1", i, p.Confidence)
		}
		prev = p.Confidence
	}
}

func TestGenerate_BoundsSanity(t *testing.T) {
	svc := newTestService(&mockRepo{})

	// A declining series pushes predicted values toward and below zero.
	result, err := svc.Generate(context.Background(), "u1", "sleep_duration", "1-month", series(9, 7, 5, 3, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, p := range result.Predictions {
		if p.LowerBound > p.Value || p.Value > p.UpperBound {
			t.Errorf("prediction %d: bounds %v <= %v <= %v violated", i, p.LowerBound, p.Value, p.UpperBound)
		}
		if p.LowerBound < 0 {
			t.Errorf("prediction %d: lower bound %v negative", i, p.LowerBound)
		}
	}
}

func TestGenerate_InsufficientData(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.Generate(context.Background(), "u1", "heart_rate", "3-days", series(10, 12))
	if !engineerr.Is(err, engineerr.CodeInsufficientData) {
		t.Errorf("error = %v, want INSUFFICIENT_DATA", err)
	}
}

func TestGenerate_FeatureDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTimeSeriesForecasting = false
	svc := NewService(cfg, &mockRepo{}, cache.NewMemoryStore(), zerolog.Nop())

	_, err := svc.Generate(context.Background(), "u1", "heart_rate", "3-days", series(10, 12, 11))
	if !engineerr.Is(err, engineerr.CodeFeatureDisabled) {
		t.Errorf("error = %v, want FEATURE_DISABLED", err)
	}
}

func TestGenerate_NotInitialized(t *testing.T) {
	svc := NewService(nil, &mockRepo{}, cache.NewMemoryStore(), zerolog.Nop())

	_, err := svc.Generate(context.Background(), "u1", "heart_rate", "3-days", series(10, 12, 11))
	if !engineerr.Is(err, engineerr.CodeServiceNotInitialized) {
		t.Errorf("error = %v, want SERVICE_NOT_INITIALIZED", err)
	}
}

func TestModelSelectionByVolume(t *testing.T) {
	cases := []struct {
		points int
		want   string
	}{
		{5, "linear"},
		{9, "linear"},
		{10, "arima"},
		{29, "arima"},
		{30, "prophet"},
		{50, "prophet"},
	}
	for _, tc := range cases {
		if got := selectModel(tc.points); got != tc.want {
			t.Errorf("selectModel(%d) = %q, want %q", tc.points, got, tc.want)
		}
	}
}

func TestParseHorizonDays(t *testing.T) {
	cases := []struct {
		horizon string
		want    int
	}{
		{"3-days", 3},
		{"1-day", 1},
		{"2-weeks", 14},
		{"1-month", 30},
		{"3-months", 90},
		{"garbage", 7},
		{"", 7},
		{"-5-days", 7},
		{"0-days", 7},
	}
	for _, tc := range cases {
		if got := parseHorizonDays(tc.horizon); got != tc.want {
			t.Errorf("parseHorizonDays(%q) = %d, want %d", tc.horizon, got, tc.want)
		}
	}
}

func TestGenerate_HorizonCappedByConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxForecastHorizonDays = 10
	svc := NewService(cfg, &mockRepo{}, cache.NewMemoryStore(), zerolog.Nop())

	result, err := svc.Generate(context.Background(), "u1", "steps", "2-months", series(1, 2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Predictions) != 10 {
		t.Errorf("got %d predictions, want capped 10", len(result.Predictions))
	}
}

func TestGenerate_CacheHitSkipsRecomputation(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)
	ctx := context.Background()
	data := series(10, 12, 11, 13, 12)

	first, err := svc.Generate(ctx, "u1", "heart_rate", "3-days", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Generate(ctx, "u1", "heart_rate", "3-days", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.creates != 1 {
		t.Errorf("repo creates = %d, want 1 (second call served from cache)", repo.creates)
	}
	if first.ID != second.ID {
		t.Error("cached result should be the same artifact")
	}
}

func TestGenerate_AccuracyBounds(t *testing.T) {
	svc := newTestService(&mockRepo{})

	for i, data := range [][]health.DataPoint{
		series(10, 12, 11, 13, 12),
		series(1, 100, 2, 99, 3),
		series(5, 5, 5, 5, 5),
	} {
		result, err := svc.Generate(context.Background(), "u1", fmt.Sprintf("metric_%d", i), "3-days", data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Accuracy < 0.7 || result.Accuracy > 1.0 {
			t.Errorf("accuracy %v outside [0.7, 1.0]", result.Accuracy)
		}
	}
}
