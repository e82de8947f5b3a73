package insight

import "time"

// Trend classifies the direction of a metric over the observed window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Insight is a single human-readable finding about one metric or subsystem.
type Insight struct {
	Type        string  `json:"type"`
	Metric      string  `json:"metric,omitempty"`
	Trend       Trend   `json:"trend,omitempty"`
	Description string  `json:"description"`
	Score       float64 `json:"score,omitempty"`
}

// Report aggregates trends, anomaly findings, and circadian results into one
// summary with an overall health score in [0,100].
type Report struct {
	UserID          string    `json:"user_id"`
	Insights        []Insight `json:"insights"`
	Recommendations []string  `json:"recommendations"`
	RiskFactors     []string  `json:"risk_factors"`
	Score           float64   `json:"score"`
	Confidence      float64   `json:"confidence"`
	GeneratedAt     time.Time `json:"generated_at"`
}
