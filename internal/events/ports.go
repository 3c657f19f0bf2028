package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/models"
)

// Filter is a conjunction of independent search predicates. Zero values mean
// "no restriction" for every field.
type Filter struct {
	Text          string
	CategoryIDs   []uuid.UUID
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	States        []models.EventState
	InitiatorIDs  []uuid.UUID
}

// Page is an offset/limit window. A nil *Page materializes the full set,
// which the view-count sort path needs.
type Page struct {
	From int
	Size int
}

// EventStore is the persistence port for events.
type EventStore interface {
	// InTx runs fn against a store bound to one transaction; fn returning an
	// error rolls the transaction back.
	InTx(ctx context.Context, fn func(EventStore) error) error

	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	// GetForUpdate locks the event row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Update(ctx context.Context, e *models.Event) error

	// Search applies the filter conjunctively. sortByDate orders by event_date
	// ascending, otherwise by id ascending.
	Search(ctx context.Context, f Filter, sortByDate bool, page *Page) ([]*models.Event, error)
	ListByInitiator(ctx context.Context, initiatorID uuid.UUID, from, size int) ([]*models.Event, error)
	ByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Event, error)
}

// CategoryStore resolves category references during event writes and rendering.
type CategoryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Category, error)
}

// UserStore resolves initiator references during event writes and rendering.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

// RequestCounter supplies confirmed participation counts, grouped per event.
type RequestCounter interface {
	ConfirmedCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// ViewsSource supplies aggregated view counts per resource path. It is
// best-effort: implementations return an empty map instead of failing.
type ViewsSource interface {
	Views(ctx context.Context, uris []string) map[string]int64
}
