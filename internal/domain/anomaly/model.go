package anomaly

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how far past the detection threshold a point landed.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for result sorting.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Record maps to the anomaly_record table. Records are immutable once
// created.
//
// AnomalyScore is zScore/5 and is deliberately NOT clamped to [0,1]: extreme
// z-scores exceed 1, and downstream consumers already rely on the raw ratio.
type Record struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	Metric       string    `db:"metric" json:"metric"`
	Value        float64   `db:"value" json:"value"`
	AnomalyScore float64   `db:"anomaly_score" json:"anomaly_score"`
	IsAnomaly    bool      `db:"is_anomaly" json:"is_anomaly"`
	Severity     Severity  `db:"severity" json:"severity"`
	Explanation  string    `db:"explanation" json:"explanation"`
	Algorithm    string    `db:"algorithm" json:"algorithm"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
