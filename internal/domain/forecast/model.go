package forecast

import (
	"time"

	"github.com/google/uuid"
)

// Prediction is a single forecasted step. Confidence decays with horizon
// distance and never drops below 0.1.
type Prediction struct {
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
	Confidence float64   `json:"confidence"`
	UpperBound float64   `json:"upper_bound"`
	LowerBound float64   `json:"lower_bound"`
}

// Result maps to the forecast_result table. A result is superseded by the
// next fresh computation, never mutated.
type Result struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	UserID      string       `db:"user_id" json:"user_id"`
	Metric      string       `db:"metric" json:"metric"`
	Predictions []Prediction `db:"predictions" json:"predictions"`
	Model       string       `db:"model" json:"model"`
	Accuracy    float64      `db:"accuracy" json:"accuracy"`
	Horizon     string       `db:"horizon" json:"horizon"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}
