package requests

import (
	"context"

	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/models"
)

// Store is the persistence surface of the participation workflow. InTx runs
// fn against a transactional view of the same store; writes made through it
// commit only when fn returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(tx Store) error) error

	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	// GetEventForUpdate locks the event row for the rest of the transaction
	// so capacity checks and status writes see a stable confirmed count.
	GetEventForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)

	Insert(ctx context.Context, r *models.ParticipationRequest) error
	Exists(ctx context.Context, eventID, requesterID uuid.UUID) (bool, error)
	CountConfirmed(ctx context.Context, eventID uuid.UUID) (int64, error)
	GetByIDAndRequester(ctx context.Context, id, requesterID uuid.UUID) (*models.ParticipationRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.ParticipationRequest, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ParticipationRequest, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ParticipationRequest, error)
	UpdateStatus(ctx context.Context, ids []uuid.UUID, status models.RequestStatus) error
	// RejectPendingByEvent flips every PENDING request of the event to
	// REJECTED and returns the affected rows.
	RejectPendingByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ParticipationRequest, error)
}
