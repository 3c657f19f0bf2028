package compilations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/apperr"
	"github.com/gatherly/backend/internal/models"
)

// Repository is the pgx-backed compilation store. Event links are kept in a
// join table ordered by position.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a compilation repository on the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, comp *models.Compilation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO compilations (title, pinned) VALUES ($1, $2) RETURNING id`
	if err := tx.QueryRow(ctx, q, comp.Title, comp.Pinned).Scan(&comp.ID); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, comp.ID, comp.EventIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update replaces the compilation's fields and its full set of event links.
func (r *Repository) Update(ctx context.Context, comp *models.Compilation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE compilations SET title = $2, pinned = $3 WHERE id = $1`
	tag, err := tx.Exec(ctx, q, comp.ID, comp.Title, comp.Pinned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("compilation %s not found", comp.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM compilation_events WHERE compilation_id = $1`, comp.ID); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, comp.ID, comp.EventIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertLinks(ctx context.Context, tx pgx.Tx, compID uuid.UUID, eventIDs []uuid.UUID) error {
	const q = `
		INSERT INTO compilation_events (compilation_id, event_id, position)
		VALUES ($1, $2, $3)`

	for i, eventID := range eventIDs {
		if _, err := tx.Exec(ctx, q, compID, eventID, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM compilations WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("compilation %s not found", id)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Compilation, error) {
	const q = `SELECT id, title, pinned FROM compilations WHERE id = $1`

	var comp models.Compilation
	err := r.pool.QueryRow(ctx, q, id).Scan(&comp.ID, &comp.Title, &comp.Pinned)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("compilation %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, []*models.Compilation{&comp}); err != nil {
		return nil, err
	}
	return &comp, nil
}

// List returns compilations, optionally filtered by pinned state.
func (r *Repository) List(ctx context.Context, pinned *bool, from, size int) ([]*models.Compilation, error) {
	q := `SELECT id, title, pinned FROM compilations ORDER BY id OFFSET $1 LIMIT $2`
	args := []any{from, size}
	if pinned != nil {
		q = `SELECT id, title, pinned FROM compilations WHERE pinned = $1 ORDER BY id OFFSET $2 LIMIT $3`
		args = []any{*pinned, from, size}
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Compilation
	for rows.Next() {
		var comp models.Compilation
		if err := rows.Scan(&comp.ID, &comp.Title, &comp.Pinned); err != nil {
			return nil, err
		}
		out = append(out, &comp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadLinks fills EventIDs for each compilation in position order.
func (r *Repository) loadLinks(ctx context.Context, comps []*models.Compilation) error {
	if len(comps) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(comps))
	byID := make(map[uuid.UUID]*models.Compilation, len(comps))
	for _, c := range comps {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	const q = `
		SELECT compilation_id, event_id FROM compilation_events
		WHERE compilation_id = ANY($1)
		ORDER BY compilation_id, position`

	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var compID, eventID uuid.UUID
		if err := rows.Scan(&compID, &eventID); err != nil {
			return err
		}
		if c, ok := byID[compID]; ok {
			c.EventIDs = append(c.EventIDs, eventID)
		}
	}
	return rows.Err()
}
