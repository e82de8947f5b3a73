package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/platform/cache"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/health"
)

// -- Mock repository --

type mockRepo struct {
	records []*Record
	batches int
}

func (m *mockRepo) CreateBatch(_ context.Context, records []*Record) error {
	m.batches++
	m.records = append(m.records, records...)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*Record, int, error) {
	var out []*Record
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func testConfig() *config.Config {
	return &config.Config{
		EnableAnomalyDetection:  true,
		MaxDataPointsPerRequest: 10000,
		AnomalyCacheTTL:         30 * time.Minute,
	}
}

func newTestService(repo Repository) *Service {
	return NewService(testConfig(), repo, cache.NewMemoryStore(), zerolog.Nop())
}

func points(metric string, values ...float64) []health.DataPoint {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := make([]health.DataPoint, len(values))
	for i, v := range values {
		out[i] = health.DataPoint{
			UserID:    "u1",
			Metric:    metric,
			Value:     v,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestDetect_ExampleScenario(t *testing.T) {
	svc := newTestService(&mockRepo{})

	records, err := svc.Detect(context.Background(), "u1",
		points("heart_rate", 100, 101, 99, 102, 250), nil, "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want exactly 1", len(records))
	}
	rec := records[0]
	if rec.Value != 250 {
		t.Errorf("flagged value = %v, want 250", rec.Value)
	}
	if rec.Severity != SeverityCritical && rec.Severity != SeverityHigh {
		t.Errorf("severity = %q, want critical or high", rec.Severity)
	}
	if !rec.IsAnomaly {
		t.Error("record should be flagged as anomaly")
	}
	if rec.Algorithm != "zscore" {
		t.Errorf("algorithm = %q, want zscore default", rec.Algorithm)
	}
}

func TestDetect_ThresholdCorrectness(t *testing.T) {
	svc := newTestService(&mockRepo{})

	// Symmetric tight group: no point exceeds 2.5 sigma.
	records, err := svc.Detect(context.Background(), "u1",
		points("steps", 10, 11, 12, 11, 10, 11, 12), nil, "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records for a tight group, want 0", len(records))
	}
}

func TestDetect_SensitivityMapping(t *testing.T) {
	// The 16 reading sits at exactly 2.5 sigma from its peers: flagged at
	// high sensitivity (threshold 2.0), not at low (3.0).
	data := points("glucose", 10, 11, 12, 13, 14, 9, 8, 16)

	svcHigh := newTestService(&mockRepo{})
	high, err := svcHigh.Detect(context.Background(), "u1", data, nil, "high")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svcLow := newTestService(&mockRepo{})
	low, err := svcLow.Detect(context.Background(), "u2", data, nil, "low")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(high) == 0 {
		t.Error("high sensitivity should flag the 115 reading")
	}
	if len(low) != 0 {
		t.Errorf("low sensitivity flagged %d records, want 0", len(low))
	}
}

func TestDetect_UnknownSensitivityDefaultsToMedium(t *testing.T) {
	data := points("heart_rate", 100, 101, 99, 102, 250)

	svc := newTestService(&mockRepo{})
	got, err := svc.Detect(context.Background(), "u1", data, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svcMed := newTestService(&mockRepo{})
	want, err := svcMed.Detect(context.Background(), "u2", data, nil, "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != len(want) {
		t.Errorf("default sensitivity flagged %d, medium flagged %d", len(got), len(want))
	}
}

func TestDetect_Ordering(t *testing.T) {
	svc := newTestService(&mockRepo{})

	// Two metric groups with outliers of different magnitude produce mixed
	// severities.
	data := append(
		points("heart_rate", 100, 101, 99, 102, 100, 101, 400), // extreme outlier
		points("steps", 5000, 5100, 4900, 5050, 4950, 5000, 7500)...)

	records, err := svc.Detect(context.Background(), "u1", data, nil, "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) < 2 {
		t.Fatalf("got %d records, want at least 2", len(records))
	}

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if severityRank[cur.Severity] > severityRank[prev.Severity] {
			t.Errorf("record %d severity %q ranked above preceding %q", i, cur.Severity, prev.Severity)
		}
		if cur.Severity == prev.Severity && cur.Timestamp.After(prev.Timestamp) {
			t.Errorf("record %d breaks timestamp-descending tie order", i)
		}
	}
}

func TestDetect_SmallMetricGroupsSkipped(t *testing.T) {
	svc := newTestService(&mockRepo{})

	// heart_rate has 5 points (analyzed), weight has 2 (silently skipped
	// even though one looks extreme).
	data := append(
		points("heart_rate", 100, 101, 99, 102, 250),
		points("weight", 70, 200)...)

	records, err := svc.Detect(context.Background(), "u1", data, nil, "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range records {
		if r.Metric == "weight" {
			t.Error("weight group with 2 points should be skipped")
		}
	}
}

func TestDetect_InsufficientData(t *testing.T) {
	svc := newTestService(&mockRepo{})

	_, err := svc.Detect(context.Background(), "u1", points("heart_rate", 1, 2, 3, 4), nil, "medium")
	if !engineerr.Is(err, engineerr.CodeInsufficientData) {
		t.Errorf("error = %v, want INSUFFICIENT_DATA", err)
	}
}

func TestDetect_FeatureDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableAnomalyDetection = false
	svc := NewService(cfg, &mockRepo{}, cache.NewMemoryStore(), zerolog.Nop())

	_, err := svc.Detect(context.Background(), "u1", points("heart_rate", 1, 2, 3, 4, 5), nil, "medium")
	if !engineerr.Is(err, engineerr.CodeFeatureDisabled) {
		t.Errorf("error = %v, want FEATURE_DISABLED", err)
	}
}

func TestDetect_ScoreIsUnclampedZOverFive(t *testing.T) {
	svc := newTestService(&mockRepo{})

	records, err := svc.Detect(context.Background(), "u1",
		points("heart_rate", 100, 101, 99, 102, 98, 100, 101, 99, 100, 102, 10000), nil, "medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	// An extreme z-score pushes the score past 1; the raw z/5 ratio is
	// kept, callers must not assume the field stays within [0, 1].
	if records[0].AnomalyScore <= 1 {
		t.Errorf("anomaly score = %v, want > 1 for an extreme outlier", records[0].AnomalyScore)
	}
}

func TestDetect_CacheHit(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)
	ctx := context.Background()
	data := points("heart_rate", 100, 101, 99, 102, 250)

	if _, err := svc.Detect(ctx, "u1", data, nil, "medium"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Detect(ctx, "u1", data, nil, "medium"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.batches != 1 {
		t.Errorf("repo batches = %d, want 1 (second call served from cache)", repo.batches)
	}
}

func TestClassifySeverity(t *testing.T) {
	cases := []struct {
		z, threshold float64
		want         Severity
	}{
		{5.1, 2.5, SeverityCritical},
		{4.0, 2.5, SeverityHigh},
		{2.6, 2.5, SeverityMedium},
		{2.0, 2.5, SeverityLow},
	}
	for _, tc := range cases {
		if got := classifySeverity(tc.z, tc.threshold); got != tc.want {
			t.Errorf("classifySeverity(%v, %v) = %q, want %q", tc.z, tc.threshold, got, tc.want)
		}
	}
}
