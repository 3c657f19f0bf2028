package requests

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/apperr"
	"github.com/gatherly/backend/internal/models"
)

const requestColumns = `id, created, event_id, requester_id, status`

const eventColumns = `id, title, annotation, description, category_id, initiator_id,
	event_date, lat, lon, paid, participant_limit, request_moderation,
	state, created_on, published_on`

// querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the pgx-backed Store.
type Repository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository creates a request repository on the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// InTx runs fn inside a single transaction.
func (r *Repository) InTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{pool: r.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.getEvent(ctx, id, "")
}

func (r *Repository) GetEventForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.getEvent(ctx, id, " FOR UPDATE")
}

func (r *Repository) getEvent(ctx context.Context, id uuid.UUID, suffix string) (*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = $1` + suffix

	var e models.Event
	err := r.q.QueryRow(ctx, q, id).Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.EventDate, &e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit,
		&e.RequestModeration, &e.State, &e.CreatedOn, &e.PublishedOn,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var ok bool
	if err := r.q.QueryRow(ctx, q, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repository) Insert(ctx context.Context, req *models.ParticipationRequest) error {
	const q = `
		INSERT INTO participation_requests (id, created, event_id, requester_id, status)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.Exec(ctx, q, req.ID, req.Created, req.EventID, req.RequesterID, req.Status)
	return err
}

func (r *Repository) Exists(ctx context.Context, eventID, requesterID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM participation_requests
			WHERE event_id = $1 AND requester_id = $2
		)`

	var ok bool
	if err := r.q.QueryRow(ctx, q, eventID, requesterID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repository) CountConfirmed(ctx context.Context, eventID uuid.UUID) (int64, error) {
	const q = `
		SELECT COUNT(*) FROM participation_requests
		WHERE event_id = $1 AND status = 'CONFIRMED'`

	var n int64
	if err := r.q.QueryRow(ctx, q, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ConfirmedCounts returns the confirmed participation count per event in one
// grouped query. Events without confirmed requests are absent from the map.
func (r *Repository) ConfirmedCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	const q = `
		SELECT event_id, COUNT(*) FROM participation_requests
		WHERE event_id = ANY($1) AND status = 'CONFIRMED'
		GROUP BY event_id`

	rows, err := r.q.Query(ctx, q, eventIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *Repository) GetByIDAndRequester(ctx context.Context, id, requesterID uuid.UUID) (*models.ParticipationRequest, error) {
	const q = `
		SELECT ` + requestColumns + ` FROM participation_requests
		WHERE id = $1 AND requester_id = $2`

	var req models.ParticipationRequest
	err := r.q.QueryRow(ctx, q, id, requesterID).Scan(
		&req.ID, &req.Created, &req.EventID, &req.RequesterID, &req.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.ParticipationRequest, error) {
	const q = `
		SELECT ` + requestColumns + ` FROM participation_requests
		WHERE requester_id = $1
		ORDER BY created`

	return r.list(ctx, q, requesterID)
}

func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ParticipationRequest, error) {
	const q = `
		SELECT ` + requestColumns + ` FROM participation_requests
		WHERE event_id = $1
		ORDER BY created`

	return r.list(ctx, q, eventID)
}

func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ParticipationRequest, error) {
	const q = `
		SELECT ` + requestColumns + ` FROM participation_requests
		WHERE id = ANY($1)`

	return r.list(ctx, q, ids)
}

func (r *Repository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status models.RequestStatus) error {
	const q = `UPDATE participation_requests SET status = $2 WHERE id = ANY($1)`

	_, err := r.q.Exec(ctx, q, ids, status)
	return err
}

func (r *Repository) RejectPendingByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ParticipationRequest, error) {
	const q = `
		UPDATE participation_requests SET status = 'REJECTED'
		WHERE event_id = $1 AND status = 'PENDING'
		RETURNING ` + requestColumns

	return r.list(ctx, q, eventID)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.ParticipationRequest, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ParticipationRequest
	for rows.Next() {
		var req models.ParticipationRequest
		if err := rows.Scan(&req.ID, &req.Created, &req.EventID, &req.RequesterID, &req.Status); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
