package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/apperr"
	"github.com/gatherly/backend/internal/models"
)

// Service implements the participation workflow: request creation under
// capacity rules, owner-driven moderation and requester cancellation.
type Service struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a participation request service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, now: time.Now, logger: logger}
}

// Add registers userID as a participant of eventID. The new request is
// CONFIRMED immediately when the event is unlimited or unmoderated,
// PENDING otherwise.
func (s *Service) Add(ctx context.Context, userID, eventID uuid.UUID) (*RequestView, error) {
	var created models.ParticipationRequest
	err := s.store.InTx(ctx, func(tx Store) error {
		ok, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("user %s not found", userID)
		}
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID == userID {
			return apperr.Conflict("initiator cannot request participation in own event")
		}
		if ev.State != models.EventPublished {
			return apperr.Conflict("cannot participate in an unpublished event")
		}
		exists, err := tx.Exists(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("participation request already exists")
		}
		if ev.ParticipantLimit > 0 {
			confirmed, err := tx.CountConfirmed(ctx, eventID)
			if err != nil {
				return err
			}
			if confirmed >= int64(ev.ParticipantLimit) {
				return apperr.Conflict("the participant limit has been reached")
			}
		}

		created = models.ParticipationRequest{
			ID:          uuid.New(),
			Created:     s.now().Truncate(time.Second),
			EventID:     eventID,
			RequesterID: userID,
			Status:      models.InitialRequestStatus(ev.ParticipantLimit, ev.RequestModeration),
		}
		return tx.Insert(ctx, &created)
	})
	if err != nil {
		return nil, err
	}
	view := toView(created)
	return &view, nil
}

// ListByRequester returns all requests made by the user.
func (s *Service) ListByRequester(ctx context.Context, userID uuid.UUID) ([]RequestView, error) {
	ok, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("user %s not found", userID)
	}
	list, err := s.store.ListByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toViews(list), nil
}

// Cancel withdraws the caller's own request. The transition to CANCELED is
// unconditional and repeatable.
func (s *Service) Cancel(ctx context.Context, userID, requestID uuid.UUID) (*RequestView, error) {
	var canceled models.ParticipationRequest
	err := s.store.InTx(ctx, func(tx Store) error {
		req, err := tx.GetByIDAndRequester(ctx, requestID, userID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestCanceled {
			if err := tx.UpdateStatus(ctx, []uuid.UUID{req.ID}, models.RequestCanceled); err != nil {
				return err
			}
			req.Status = models.RequestCanceled
		}
		canceled = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := toView(canceled)
	return &view, nil
}

// ListForEvent returns every request targeting the owner's event.
func (s *Service) ListForEvent(ctx context.Context, ownerID, eventID uuid.UUID) ([]RequestView, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.InitiatorID != ownerID {
		return nil, apperr.NotFound("event %s not found", eventID)
	}
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toViews(list), nil
}

// ChangeStatus applies an owner-driven batch transition of PENDING requests
// to CONFIRMED or REJECTED.
//
// On the moderated confirm path the batch is walked in the supplied order
// against a running confirmed count. A request that would overflow the limit
// stops the batch with a conflict, but the confirmations applied before it
// stay committed; callers observe the conflict without a result. When the
// limit is filled exactly, every other PENDING request of the event is
// rejected as a side effect.
func (s *Service) ChangeStatus(ctx context.Context, ownerID, eventID uuid.UUID, ids []uuid.UUID, target models.RequestStatus) (*StatusUpdateResult, error) {
	if target != models.RequestConfirmed && target != models.RequestRejected {
		return nil, apperr.BadRequest("status must be CONFIRMED or REJECTED")
	}

	result := &StatusUpdateResult{
		ConfirmedRequests: []RequestView{},
		RejectedRequests:  []RequestView{},
	}
	var capacityErr error

	err := s.store.InTx(ctx, func(tx Store) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID != ownerID {
			return apperr.NotFound("event %s not found", eventID)
		}

		found, err := tx.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.ParticipationRequest, len(found))
		for _, r := range found {
			byID[r.ID] = r
		}
		// Rebuild in the supplied order; the moderated path consumes
		// capacity in exactly this order. A repeated id would consume a
		// slot per occurrence, so duplicates are rejected up front.
		batch := make([]models.ParticipationRequest, 0, len(ids))
		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			r, ok := byID[id]
			if !ok {
				return apperr.NotFound("request %s not found", id)
			}
			if seen[id] {
				return apperr.NotFound("some of the supplied requests were not found")
			}
			seen[id] = true
			batch = append(batch, r)
		}
		for _, r := range batch {
			if r.EventID != eventID {
				return apperr.Conflict("request %s does not belong to event %s", r.ID, eventID)
			}
			if r.Status != models.RequestPending {
				return apperr.Conflict("request %s is not pending", r.ID)
			}
		}

		// Unlimited or unmoderated events need no capacity bookkeeping.
		if ev.ParticipantLimit == 0 || !ev.RequestModeration {
			return s.applyAll(ctx, tx, batch, target, result)
		}
		if target == models.RequestRejected {
			return s.applyAll(ctx, tx, batch, target, result)
		}

		confirmed, err := tx.CountConfirmed(ctx, eventID)
		if err != nil {
			return err
		}
		limit := int64(ev.ParticipantLimit)

		var confirmable []models.ParticipationRequest
		for _, r := range batch {
			if confirmed >= limit {
				capacityErr = apperr.Conflict("the participant limit has been reached")
				break
			}
			confirmable = append(confirmable, r)
			confirmed++
		}
		if len(confirmable) > 0 {
			if err := tx.UpdateStatus(ctx, requestIDs(confirmable), models.RequestConfirmed); err != nil {
				return err
			}
		}
		// Commit the confirmations even when the batch overflowed; the
		// conflict is surfaced to the caller after the transaction.
		if capacityErr != nil {
			return nil
		}

		for _, r := range confirmable {
			r.Status = models.RequestConfirmed
			result.ConfirmedRequests = append(result.ConfirmedRequests, toView(r))
		}
		// A full event takes no further participants; sweep the queue. The
		// swept requests are a side effect, not part of the result.
		if confirmed >= limit {
			rejected, err := tx.RejectPendingByEvent(ctx, eventID)
			if err != nil {
				return err
			}
			if len(rejected) > 0 {
				s.logger.Info("rejected remaining pending requests",
					zap.String("event_id", eventID.String()),
					zap.Int("count", len(rejected)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if capacityErr != nil {
		return nil, capacityErr
	}
	return result, nil
}

func (s *Service) applyAll(ctx context.Context, tx Store, batch []models.ParticipationRequest, target models.RequestStatus, result *StatusUpdateResult) error {
	if err := tx.UpdateStatus(ctx, requestIDs(batch), target); err != nil {
		return err
	}
	for _, r := range batch {
		r.Status = target
		if target == models.RequestConfirmed {
			result.ConfirmedRequests = append(result.ConfirmedRequests, toView(r))
		} else {
			result.RejectedRequests = append(result.RejectedRequests, toView(r))
		}
	}
	return nil
}

func requestIDs(rs []models.ParticipationRequest) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
