package anomaly

import "context"

// Repository persists detected anomaly records.
type Repository interface {
	CreateBatch(ctx context.Context, records []*Record) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Record, int, error)
}
