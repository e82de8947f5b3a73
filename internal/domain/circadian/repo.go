package circadian

import "context"

// Repository persists circadian analyses.
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Analysis, int, error)
}
