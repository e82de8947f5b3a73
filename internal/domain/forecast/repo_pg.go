package forecast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Postgres-backed forecast repository. Predictions are
// stored as a JSONB column; results are append-only.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const cols = `id, user_id, metric, predictions, model, accuracy, horizon, created_at, updated_at`

func scanResult(row pgx.Row) (*Result, error) {
	var r Result
	var predictions []byte
	err := row.Scan(&r.ID, &r.UserID, &r.Metric, &predictions, &r.Model,
		&r.Accuracy, &r.Horizon, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(predictions, &r.Predictions); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	return &r, nil
}

func (r *repoPG) Create(ctx context.Context, res *Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	predictions, err := json.Marshal(res.Predictions)
	if err != nil {
		return fmt.Errorf("encode predictions: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO forecast_result (id, user_id, metric, predictions, model, accuracy, horizon, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		res.ID, res.UserID, res.Metric, predictions, res.Model,
		res.Accuracy, res.Horizon, res.CreatedAt, res.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Result, error) {
	return scanResult(r.pool.QueryRow(ctx, `SELECT `+cols+` FROM forecast_result WHERE id = $1`, id))
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Result, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM forecast_result WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+cols+` FROM forecast_result
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
