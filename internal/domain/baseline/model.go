package baseline

import (
	"time"

	"github.com/google/uuid"
)

// NormalRange brackets the values considered typical for the user.
type NormalRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Baseline is a per-user, per-metric reference value maintained as an
// exponentially weighted moving average. NormalRange and Confidence are set
// at creation and are not recomputed on update.
type Baseline struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"user_id"`
	Metric      string      `db:"metric" json:"metric"`
	Baseline    float64     `db:"baseline" json:"baseline"`
	NormalRange NormalRange `db:"normal_range" json:"normal_range"`
	Confidence  float64     `db:"confidence" json:"confidence"`
	SampleSize  int         `db:"sample_size" json:"sample_size"`
	LastUpdated time.Time   `db:"last_updated" json:"last_updated"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
