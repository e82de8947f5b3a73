package baseline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repoPG stores baselines in Postgres. The personalized_baseline table
// carries a UNIQUE(user_id, metric) constraint; Upsert relies on it.
type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Get(ctx context.Context, userID, metric string) (*Baseline, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, metric, baseline, range_min, range_max, confidence, sample_size, last_updated, created_at
		FROM personalized_baseline
		WHERE user_id = $1 AND metric = $2`,
		userID, metric)

	b, err := scanBaseline(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repoPG) Upsert(ctx context.Context, b *Baseline) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO personalized_baseline (id, user_id, metric, baseline, range_min, range_max, confidence, sample_size, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, metric) DO UPDATE SET
			baseline = EXCLUDED.baseline,
			sample_size = EXCLUDED.sample_size,
			last_updated = EXCLUDED.last_updated`,
		b.ID, b.UserID, b.Metric, b.Baseline, b.NormalRange.Min, b.NormalRange.Max,
		b.Confidence, b.SampleSize, b.LastUpdated, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert baseline: %w", err)
	}
	return nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID string) ([]*Baseline, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, metric, baseline, range_min, range_max, confidence, sample_size, last_updated, created_at
		FROM personalized_baseline
		WHERE user_id = $1
		ORDER BY metric`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	defer rows.Close()

	var out []*Baseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baselines: %w", err)
	}
	return out, nil
}

func scanBaseline(row pgx.Row) (*Baseline, error) {
	var b Baseline
	if err := row.Scan(&b.ID, &b.UserID, &b.Metric, &b.Baseline, &b.NormalRange.Min, &b.NormalRange.Max,
		&b.Confidence, &b.SampleSize, &b.LastUpdated, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan baseline: %w", err)
	}
	return &b, nil
}
