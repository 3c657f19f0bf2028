package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/apperr"
	"github.com/gatherly/backend/internal/models"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const eventColumns = `id, title, annotation, description, category_id, initiator_id, event_date, lat, lon, paid, participant_limit, request_moderation, state, created_on, published_on`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// InTx runs fn inside one transaction. The nested store shares pgx.Tx, so
// GetForUpdate row locks hold until commit.
func (r *Repository) InTx(ctx context.Context, fn func(EventStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repository{pool: r.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, annotation, description, category_id, initiator_id, event_date, lat, lon, paid, participant_limit, request_moderation, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_on`
	return r.q.QueryRow(ctx, q,
		e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID, e.EventDate,
		e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit, e.RequestModeration, e.State,
	).Scan(&e.ID, &e.CreatedOn)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate returns an event and locks its row for the transaction. The
// lock serializes concurrent capacity checks and state transitions per event.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *Repository) get(ctx context.Context, id uuid.UUID, suffix string) (*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = $1` + suffix
	e, err := scanEvent(r.q.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Update persists all mutable event fields.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, annotation = $2, description = $3, category_id = $4, event_date = $5,
		lat = $6, lon = $7, paid = $8, participant_limit = $9, request_moderation = $10, state = $11, published_on = $12
		WHERE id = $13`
	_, err := r.q.Exec(ctx, q,
		e.Title, e.Annotation, e.Description, e.CategoryID, e.EventDate,
		e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit, e.RequestModeration, e.State, e.PublishedOn,
		e.ID,
	)
	return err
}

// Search applies the filter as a conjunction of independent predicates,
// lowered to one WHERE clause. A nil page fetches the whole match set.
func (r *Repository) Search(ctx context.Context, f Filter, sortByDate bool, page *Page) ([]*models.Event, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, st := range f.States {
			states = append(states, string(st))
		}
		conds = append(conds, "state = ANY("+arg(states)+")")
	}
	if len(f.InitiatorIDs) > 0 {
		conds = append(conds, "initiator_id = ANY("+arg(f.InitiatorIDs)+")")
	}
	if len(f.CategoryIDs) > 0 {
		conds = append(conds, "category_id = ANY("+arg(f.CategoryIDs)+")")
	}
	if f.Paid != nil {
		conds = append(conds, "paid = "+arg(*f.Paid))
	}
	if f.RangeStart != nil {
		conds = append(conds, "event_date >= "+arg(*f.RangeStart))
	}
	if f.RangeEnd != nil {
		conds = append(conds, "event_date <= "+arg(*f.RangeEnd))
	}
	if f.Text != "" {
		like := "%" + f.Text + "%"
		conds = append(conds, "(annotation ILIKE "+arg(like)+" OR description ILIKE "+arg(like)+")")
	}
	if f.OnlyAvailable {
		conds = append(conds, `(participant_limit = 0 OR participant_limit > (
			SELECT COUNT(*) FROM participation_requests pr
			WHERE pr.event_id = events.id AND pr.status = 'CONFIRMED'))`)
	}

	q := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if sortByDate {
		q += " ORDER BY event_date ASC"
	} else {
		q += " ORDER BY id ASC"
	}
	if page != nil {
		q += " OFFSET " + arg(page.From) + " LIMIT " + arg(page.Size)
	}

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByInitiator returns the user's events, id-ascending, offset-paginated.
func (r *Repository) ListByInitiator(ctx context.Context, initiatorID uuid.UUID, from, size int) ([]*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE initiator_id = $1 ORDER BY id ASC OFFSET $2 LIMIT $3`
	rows, err := r.q.Query(ctx, q, initiatorID, from, size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ByIDs returns the events matching ids, in storage order.
func (r *Repository) ByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = ANY($1)`
	rows, err := r.q.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID, &e.EventDate,
		&e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit, &e.RequestModeration,
		&e.State, &e.CreatedOn, &e.PublishedOn,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]*models.Event, error) {
	var list []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
