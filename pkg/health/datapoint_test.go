package health

import (
	"testing"
	"time"
)

func points(metrics ...string) []DataPoint {
	pts := make([]DataPoint, len(metrics))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, m := range metrics {
		pts[i] = DataPoint{
			Metric:    m,
			Value:     float64(i + 1),
			Timestamp: base.Add(time.Duration(len(metrics)-i) * time.Hour),
		}
	}
	return pts
}

func TestGroupByMetric(t *testing.T) {
	groups := GroupByMetric(points("steps", "heart_rate", "steps", "sleep_duration"))

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups["steps"]) != 2 {
		t.Errorf("expected 2 steps points, got %d", len(groups["steps"]))
	}
	if len(groups["heart_rate"]) != 1 {
		t.Errorf("expected 1 heart_rate point, got %d", len(groups["heart_rate"]))
	}
}

func TestSortByTimestamp(t *testing.T) {
	pts := points("a", "a", "a")
	SortByTimestamp(pts)
	for i := 1; i < len(pts); i++ {
		if pts[i].Timestamp.Before(pts[i-1].Timestamp) {
			t.Fatalf("points not sorted at index %d", i)
		}
	}
}

func TestValues(t *testing.T) {
	vals := Values(points("a", "a", "a"))
	want := []float64{1, 2, 3}
	if len(vals) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(vals))
	}
	for i, v := range want {
		if vals[i] != v {
			t.Errorf("value[%d]: expected %v, got %v", i, vals[i], v)
		}
	}
}

func TestFilterMetricContains(t *testing.T) {
	pts := points("sleep_duration", "Steps", "heart_rate", "activity_minutes")

	sleepy := FilterMetricContains(pts, "sleep")
	if len(sleepy) != 1 || sleepy[0].Metric != "sleep_duration" {
		t.Errorf("expected only sleep_duration, got %v", sleepy)
	}

	// Matching is case-insensitive and a point matches at most once.
	active := FilterMetricContains(pts, "steps", "activity")
	if len(active) != 2 {
		t.Errorf("expected 2 activity points, got %d", len(active))
	}

	if got := FilterMetricContains(pts, "glucose"); got != nil {
		t.Errorf("expected nil for no matches, got %v", got)
	}
}
