package events

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/apperr"
	"github.com/gatherly/backend/internal/models"
)

// Public listing sort modes.
const (
	SortEventDate = "EVENT_DATE"
	SortViews     = "VIEWS"
)

// State actions accepted in update payloads.
const (
	ActionSendToReview = "SEND_TO_REVIEW"
	ActionCancelReview = "CANCEL_REVIEW"
	ActionPublish      = "PUBLISH_EVENT"
	ActionReject       = "REJECT_EVENT"
)

// NewEventInput is the payload for event creation. Optional flags keep their
// documented defaults when absent.
type NewEventInput struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        uuid.UUID
	EventDate         time.Time
	Location          models.Location
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
}

// UpdateEventInput is a merge-patch payload: nil fields stay untouched.
type UpdateEventInput struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *uuid.UUID
	EventDate         *time.Time
	Location          *models.Location
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
	StateAction       string
}

// PublicQuery carries the public search filters of GET /events.
type PublicQuery struct {
	Text          string
	CategoryIDs   []uuid.UUID
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          string
	From          int
	Size          int
}

// AdminQuery carries the admin search filters of GET /admin/events.
type AdminQuery struct {
	InitiatorIDs []uuid.UUID
	States       []models.EventState
	CategoryIDs  []uuid.UUID
	RangeStart   *time.Time
	RangeEnd     *time.Time
	From         int
	Size         int
}

// Service governs the event lifecycle and builds filtered, enriched result
// sets for public and admin search.
type Service struct {
	events     EventStore
	categories CategoryStore
	users      UserStore
	requests   RequestCounter
	stats      ViewsSource
	now        func() time.Time
	logger     *zap.Logger
}

// NewService creates the event service.
func NewService(events EventStore, categories CategoryStore, users UserStore, requests RequestCounter, stats ViewsSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events:     events,
		categories: categories,
		users:      users,
		requests:   requests,
		stats:      stats,
		now:        time.Now,
		logger:     logger,
	}
}

// PublicSearch lists published events matching the query. Sorting by views
// materializes the full filtered set, enriches it, sorts in memory and only
// then applies the offset/limit window; an externally sourced metric cannot be
// ordered by in the database.
func (s *Service) PublicSearch(ctx context.Context, q PublicQuery) ([]EventShort, error) {
	start := q.RangeStart
	if start == nil {
		now := s.now()
		start = &now
	}
	if q.RangeEnd != nil && q.RangeEnd.Before(*start) {
		return nil, apperr.Conflict("rangeEnd must not be before rangeStart")
	}

	f := Filter{
		Text:          q.Text,
		CategoryIDs:   q.CategoryIDs,
		Paid:          q.Paid,
		RangeStart:    start,
		RangeEnd:      q.RangeEnd,
		OnlyAvailable: q.OnlyAvailable,
		States:        []models.EventState{models.EventPublished},
	}

	if q.Sort == SortViews {
		all, err := s.events.Search(ctx, f, true, nil)
		if err != nil {
			return nil, err
		}
		shorts, err := s.shorts(ctx, all)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(shorts, func(i, j int) bool { return shorts[i].Views > shorts[j].Views })
		return sliceWindow(shorts, q.From, q.Size), nil
	}

	page, err := s.events.Search(ctx, f, true, &Page{From: q.From, Size: q.Size})
	if err != nil {
		return nil, err
	}
	return s.shorts(ctx, page)
}

// PublicGet returns a single published event; anything else is not found.
func (s *Service) PublicGet(ctx context.Context, id uuid.UUID) (*EventFull, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.State != models.EventPublished {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	return s.full(ctx, e)
}

// Create registers a new event in PENDING state on behalf of its initiator.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in NewEventInput) (*EventFull, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	cat, err := s.categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if in.EventDate.Before(s.now().Add(models.MinLeadTimeCreate)) {
		return nil, apperr.Conflict("event date must be at least 2 hours from now")
	}

	e := &models.Event{
		Title:             in.Title,
		Annotation:        in.Annotation,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		InitiatorID:       userID,
		EventDate:         in.EventDate,
		Location:          in.Location,
		Paid:              in.Paid != nil && *in.Paid,
		ParticipantLimit:  0,
		RequestModeration: in.RequestModeration == nil || *in.RequestModeration,
		State:             models.EventPending,
	}
	if in.ParticipantLimit != nil {
		e.ParticipantLimit = *in.ParticipantLimit
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}

	out := toFull(e, *cat, user.Short(), 0, 0)
	return &out, nil
}

// ListByOwner lists the initiator's own events, id-paginated.
func (s *Service) ListByOwner(ctx context.Context, userID uuid.UUID, from, size int) ([]EventShort, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	evs, err := s.events.ListByInitiator(ctx, userID, from, size)
	if err != nil {
		return nil, err
	}
	return s.shorts(ctx, evs)
}

// GetByOwner returns the initiator's event in any state. Cross-owner access is
// narrowed to not-found.
func (s *Service) GetByOwner(ctx context.Context, userID, eventID uuid.UUID) (*EventFull, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	e, err := s.ownedEvent(ctx, s.events, userID, eventID)
	if err != nil {
		return nil, err
	}
	return s.full(ctx, e)
}

// UpdateByOwner applies a merge-patch to the initiator's event. Only PENDING
// and CANCELED events may change; SEND_TO_REVIEW and CANCEL_REVIEW move the
// state.
func (s *Service) UpdateByOwner(ctx context.Context, userID, eventID uuid.UUID, in UpdateEventInput) (*EventFull, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	var updated *models.Event
	err := s.events.InTx(ctx, func(tx EventStore) error {
		e, err := tx.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if e.InitiatorID != userID {
			return apperr.NotFound("event with id=%s was not found", eventID)
		}
		if !e.Editable() {
			return apperr.Conflict("only pending or canceled events can be changed")
		}
		if in.EventDate != nil && in.EventDate.Before(s.now().Add(models.MinLeadTimeCreate)) {
			return apperr.Conflict("event date must be at least 2 hours from now")
		}
		if err := s.applyPatch(ctx, e, in); err != nil {
			return err
		}
		switch in.StateAction {
		case ActionSendToReview:
			e.SendToReview()
		case ActionCancelReview:
			e.CancelReview()
		}
		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.full(ctx, updated)
}

// AdminSearch lists events across all states with the admin filter set,
// id-ascending.
func (s *Service) AdminSearch(ctx context.Context, q AdminQuery) ([]EventFull, error) {
	if q.RangeStart != nil && q.RangeEnd != nil && q.RangeEnd.Before(*q.RangeStart) {
		return nil, apperr.Conflict("rangeEnd must not be before rangeStart")
	}
	f := Filter{
		InitiatorIDs: q.InitiatorIDs,
		States:       q.States,
		CategoryIDs:  q.CategoryIDs,
		RangeStart:   q.RangeStart,
		RangeEnd:     q.RangeEnd,
	}
	evs, err := s.events.Search(ctx, f, false, &Page{From: q.From, Size: q.Size})
	if err != nil {
		return nil, err
	}
	return s.fulls(ctx, evs)
}

// AdminUpdate applies a merge-patch with admin authority: field edits are not
// gated by lifecycle state, PUBLISH_EVENT and REJECT_EVENT move the state.
func (s *Service) AdminUpdate(ctx context.Context, eventID uuid.UUID, in UpdateEventInput) (*EventFull, error) {
	var updated *models.Event
	err := s.events.InTx(ctx, func(tx EventStore) error {
		e, err := tx.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.applyPatch(ctx, e, in); err != nil {
			return err
		}
		switch in.StateAction {
		case ActionPublish:
			if err := e.Publish(s.now()); err != nil {
				return err
			}
		case ActionReject:
			if err := e.Reject(); err != nil {
				return err
			}
		}
		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.full(ctx, updated)
}

// ShortsByIDs renders the given events in the given order; compilations use it.
func (s *Service) ShortsByIDs(ctx context.Context, ids []uuid.UUID) ([]EventShort, error) {
	if len(ids) == 0 {
		return []EventShort{}, nil
	}
	evs, err := s.events.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Event, len(evs))
	for _, e := range evs {
		byID[e.ID] = e
	}
	ordered := make([]*models.Event, 0, len(evs))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return s.shorts(ctx, ordered)
}

func (s *Service) ensureUser(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("user with id=%s was not found", userID)
	}
	return nil
}

func (s *Service) ownedEvent(ctx context.Context, store EventStore, userID, eventID uuid.UUID) (*models.Event, error) {
	e, err := store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.InitiatorID != userID {
		return nil, apperr.NotFound("event with id=%s was not found", eventID)
	}
	return e, nil
}

func (s *Service) applyPatch(ctx context.Context, e *models.Event, in UpdateEventInput) error {
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Annotation != nil {
		e.Annotation = *in.Annotation
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.EventDate != nil {
		e.EventDate = *in.EventDate
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.Paid != nil {
		e.Paid = *in.Paid
	}
	if in.ParticipantLimit != nil {
		e.ParticipantLimit = *in.ParticipantLimit
	}
	if in.RequestModeration != nil {
		e.RequestModeration = *in.RequestModeration
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			return err
		}
		e.CategoryID = *in.CategoryID
	}
	return nil
}

// full enriches a single event; fulls and shorts enrich batches with one
// grouped confirmed-count query and one stats call each.
func (s *Service) full(ctx context.Context, e *models.Event) (*EventFull, error) {
	list, err := s.fulls(ctx, []*models.Event{e})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Service) fulls(ctx context.Context, evs []*models.Event) ([]EventFull, error) {
	if len(evs) == 0 {
		return []EventFull{}, nil
	}
	meta, err := s.collectMeta(ctx, evs)
	if err != nil {
		return nil, err
	}
	out := make([]EventFull, 0, len(evs))
	for _, e := range evs {
		out = append(out, toFull(e, meta.category(e.CategoryID), meta.initiator(e.InitiatorID), meta.confirmed[e.ID], meta.views[e.ID]))
	}
	return out, nil
}

func (s *Service) shorts(ctx context.Context, evs []*models.Event) ([]EventShort, error) {
	if len(evs) == 0 {
		return []EventShort{}, nil
	}
	meta, err := s.collectMeta(ctx, evs)
	if err != nil {
		return nil, err
	}
	out := make([]EventShort, 0, len(evs))
	for _, e := range evs {
		out = append(out, toShort(e, meta.category(e.CategoryID), meta.initiator(e.InitiatorID), meta.confirmed[e.ID], meta.views[e.ID]))
	}
	return out, nil
}

type batchMeta struct {
	confirmed  map[uuid.UUID]int64
	views      map[uuid.UUID]int64
	categories map[uuid.UUID]models.Category
	users      map[uuid.UUID]models.User
}

func (m *batchMeta) category(id uuid.UUID) models.Category {
	return m.categories[id]
}

func (m *batchMeta) initiator(id uuid.UUID) models.UserShort {
	u := m.users[id]
	return models.UserShort{ID: u.ID, Name: u.Name}
}

func (s *Service) collectMeta(ctx context.Context, evs []*models.Event) (*batchMeta, error) {
	ids := make([]uuid.UUID, 0, len(evs))
	uris := make([]string, 0, len(evs))
	catIDs := dedup(evs, func(e *models.Event) uuid.UUID { return e.CategoryID })
	userIDs := dedup(evs, func(e *models.Event) uuid.UUID { return e.InitiatorID })
	for _, e := range evs {
		ids = append(ids, e.ID)
		uris = append(uris, EventURI(e.ID))
	}

	confirmed, err := s.requests.ConfirmedCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories.ByIDs(ctx, catIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	byURI := s.stats.Views(ctx, uris)
	views := make(map[uuid.UUID]int64, len(evs))
	for _, e := range evs {
		views[e.ID] = byURI[EventURI(e.ID)]
	}

	return &batchMeta{confirmed: confirmed, views: views, categories: cats, users: users}, nil
}

func dedup(evs []*models.Event, key func(*models.Event) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(evs))
	out := make([]uuid.UUID, 0, len(evs))
	for _, e := range evs {
		k := key(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func sliceWindow[T any](list []T, from, size int) []T {
	if from >= len(list) {
		return []T{}
	}
	to := from + size
	if to > len(list) {
		to = len(list)
	}
	return list[from:to]
}
