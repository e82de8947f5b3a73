package job

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job ID does not exist.
var ErrNotFound = errors.New("job not found")

// Repository persists analytics jobs.
type Repository interface {
	Create(ctx context.Context, j *Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	Update(ctx context.Context, j *Job) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Job, int, error)
}
