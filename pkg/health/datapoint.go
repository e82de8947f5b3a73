// Package health holds the shared wire model for raw health observations.
// A DataPoint is immutable once captured; every analytics subsystem consumes
// slices of them grouped and ordered by the caller or by the subsystem itself.
package health

import (
	"sort"
	"strings"
	"time"
)

// DataPoint is a single time-stamped observation for one metric.
type DataPoint struct {
	UserID    string            `db:"user_id" json:"user_id"`
	Timestamp time.Time         `db:"timestamp" json:"timestamp"`
	Metric    string            `db:"metric" json:"metric"`
	Value     float64           `db:"value" json:"value"`
	Unit      string            `db:"unit" json:"unit"`
	Source    *string           `db:"source" json:"source,omitempty"`
	Metadata  map[string]string `db:"metadata" json:"metadata,omitempty"`
}

// GroupByMetric partitions points by metric name. Point identity is preserved;
// no copies of the slice elements are made beyond the grouping itself.
func GroupByMetric(points []DataPoint) map[string][]DataPoint {
	groups := make(map[string][]DataPoint)
	for _, p := range points {
		groups[p.Metric] = append(groups[p.Metric], p)
	}
	return groups
}

// SortByTimestamp orders points by timestamp ascending, which is the required
// ordering for trend and volatility computation within a metric group.
func SortByTimestamp(points []DataPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
}

// Values extracts the value series from a slice of points in slice order.
func Values(points []DataPoint) []float64 {
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	return vals
}

// FilterMetricContains returns the points whose metric name contains any of
// the given substrings (case-insensitive).
func FilterMetricContains(points []DataPoint, substrings ...string) []DataPoint {
	var out []DataPoint
	for _, p := range points {
		metric := strings.ToLower(p.Metric)
		for _, s := range substrings {
			if strings.Contains(metric, s) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
