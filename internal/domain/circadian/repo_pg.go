package circadian

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repoPG stores circadian analyses in Postgres. The pattern structs and
// recommendations live in JSONB columns.
type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, a *Analysis) error {
	sleepJSON, err := json.Marshal(a.SleepPattern)
	if err != nil {
		return fmt.Errorf("marshal sleep pattern: %w", err)
	}
	activityJSON, err := json.Marshal(a.ActivityPattern)
	if err != nil {
		return fmt.Errorf("marshal activity pattern: %w", err)
	}
	recsJSON, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO circadian_analysis (id, user_id, sleep_pattern, activity_pattern, recommendations, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, sleepJSON, activityJSON, recsJSON, a.Score, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert circadian analysis: %w", err)
	}
	return nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Analysis, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM circadian_analysis WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count circadian analyses: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, sleep_pattern, activity_pattern, recommendations, score, created_at, updated_at
		FROM circadian_analysis
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list circadian analyses: %w", err)
	}
	defer rows.Close()

	var out []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate circadian analyses: %w", err)
	}
	return out, total, nil
}

func scanAnalysis(row pgx.Row) (*Analysis, error) {
	var a Analysis
	var sleepJSON, activityJSON, recsJSON []byte
	if err := row.Scan(&a.ID, &a.UserID, &sleepJSON, &activityJSON, &recsJSON, &a.Score, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan circadian analysis: %w", err)
	}
	if err := json.Unmarshal(sleepJSON, &a.SleepPattern); err != nil {
		return nil, fmt.Errorf("unmarshal sleep pattern: %w", err)
	}
	if err := json.Unmarshal(activityJSON, &a.ActivityPattern); err != nil {
		return nil, fmt.Errorf("unmarshal activity pattern: %w", err)
	}
	if err := json.Unmarshal(recsJSON, &a.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	return &a, nil
}
