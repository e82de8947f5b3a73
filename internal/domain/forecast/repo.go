package forecast

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists computed forecast results for later retrieval.
type Repository interface {
	Create(ctx context.Context, r *Result) error
	GetByID(ctx context.Context, id uuid.UUID) (*Result, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Result, int, error)
}
