package categories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/apperr"
	"github.com/gatherly/backend/internal/models"
)

// Repository is the pgx-backed category store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a category repository on the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, cat *models.Category) error {
	const q = `INSERT INTO categories (name) VALUES ($1) RETURNING id`

	return r.pool.QueryRow(ctx, q, cat.Name).Scan(&cat.ID)
}

func (r *Repository) Update(ctx context.Context, cat *models.Category) error {
	const q = `UPDATE categories SET name = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q, cat.ID, cat.Name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category %s not found", cat.ID)
	}
	return nil
}

// Delete removes a category. The foreign key from events surfaces as a
// conflict when the category is still in use.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM categories WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category %s not found", id)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	const q = `SELECT id, name FROM categories WHERE id = $1`

	var cat models.Category
	err := r.pool.QueryRow(ctx, q, id).Scan(&cat.ID, &cat.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *Repository) List(ctx context.Context, from, size int) ([]models.Category, error) {
	const q = `SELECT id, name FROM categories ORDER BY name OFFSET $1 LIMIT $2`

	rows, err := r.pool.Query(ctx, q, from, size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (r *Repository) ByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Category, error) {
	out := make(map[uuid.UUID]models.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT id, name FROM categories WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, err
		}
		out[cat.ID] = cat
	}
	return out, rows.Err()
}
