package hits

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
)

// Repository persists endpoint hits and aggregates them into view counts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a hit repository on the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one recorded hit.
func (r *Repository) Insert(ctx context.Context, app, uri, ip string, ts time.Time) error {
	const q = `
		INSERT INTO endpoint_hits (app, uri, ip, hit_time)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, q, app, uri, ip, ts)
	return err
}

// Stats aggregates hits per (app, uri) inside [start, end], most viewed
// first. With unique set, each ip counts once per uri.
func (r *Repository) Stats(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]models.ViewStats, error) {
	count := "COUNT(*)"
	if unique {
		count = "COUNT(DISTINCT ip)"
	}
	q := `
		SELECT app, uri, ` + count + ` AS hits
		FROM endpoint_hits
		WHERE hit_time BETWEEN $1 AND $2`
	args := []any{start, end}
	if len(uris) > 0 {
		q += ` AND uri = ANY($3)`
		args = append(args, uris)
	}
	q += `
		GROUP BY app, uri
		ORDER BY hits DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ViewStats{}
	for rows.Next() {
		var s models.ViewStats
		if err := rows.Scan(&s.App, &s.URI, &s.Hits); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
