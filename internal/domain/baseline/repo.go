package baseline

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no baseline exists for a (user, metric) pair.
var ErrNotFound = errors.New("baseline not found")

// Repository persists baselines with uniqueness per (user, metric).
type Repository interface {
	Get(ctx context.Context, userID, metric string) (*Baseline, error)
	Upsert(ctx context.Context, b *Baseline) error
	ListByUser(ctx context.Context, userID string) ([]*Baseline, error)
}
