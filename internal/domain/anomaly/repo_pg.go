package anomaly

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Postgres-backed anomaly repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const cols = `id, user_id, timestamp, metric, value, anomaly_score, is_anomaly, severity, explanation, algorithm, created_at`

func (r *repoPG) CreateBatch(ctx context.Context, records []*Record) error {
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		batch.Queue(`
			INSERT INTO anomaly_record (id, user_id, timestamp, metric, value, anomaly_score, is_anomaly, severity, explanation, algorithm, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			rec.ID, rec.UserID, rec.Timestamp, rec.Metric, rec.Value, rec.AnomalyScore,
			rec.IsAnomaly, rec.Severity, rec.Explanation, rec.Algorithm, rec.CreatedAt)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM anomaly_record WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+cols+` FROM anomaly_record
		WHERE user_id = $1
		ORDER BY created_at DESC, timestamp DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Timestamp, &rec.Metric, &rec.Value,
			&rec.AnomalyScore, &rec.IsAnomaly, &rec.Severity, &rec.Explanation,
			&rec.Algorithm, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		records = append(records, &rec)
	}
	return records, total, rows.Err()
}
