package circadian

import (
	"time"

	"github.com/google/uuid"
)

// SleepPattern summarizes when and how well the user sleeps.
type SleepPattern struct {
	Bedtime       string  `json:"bedtime"`
	WakeTime      string  `json:"wake_time"`
	SleepDuration float64 `json:"sleep_duration"`
	SleepQuality  float64 `json:"sleep_quality"`
	Consistency   float64 `json:"consistency"`
}

// ActivityPattern summarizes the user's daily movement rhythm.
type ActivityPattern struct {
	PeakActivityTime    string  `json:"peak_activity_time"`
	LowActivityTime     string  `json:"low_activity_time"`
	ActivityVariability float64 `json:"activity_variability"`
	RegularityScore     float64 `json:"regularity_score"`
}

// Analysis maps to the circadian_analysis table. Score is a composite rhythm
// score in [0,1].
type Analysis struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	SleepPattern    SleepPattern    `db:"sleep_pattern" json:"sleep_pattern"`
	ActivityPattern ActivityPattern `db:"activity_pattern" json:"activity_pattern"`
	Recommendations []string        `db:"recommendations" json:"recommendations"`
	Score           float64         `db:"score" json:"score"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
