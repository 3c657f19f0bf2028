package events

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/apperr"
	"github.com/gatherly/backend/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeEventStore struct {
	events     map[uuid.UUID]*models.Event
	order      []uuid.UUID
	lastFilter *Filter
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: map[uuid.UUID]*models.Event{}}
}

func (f *fakeEventStore) InTx(ctx context.Context, fn func(EventStore) error) error {
	return fn(f)
}

func (f *fakeEventStore) Create(ctx context.Context, e *models.Event) error {
	e.ID = uuid.New()
	e.CreatedOn = testNow
	copied := *e
	f.events[e.ID] = &copied
	f.order = append(f.order, e.ID)
	return nil
}

func (f *fakeEventStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, apperr.NotFound("event with id=%s was not found", id)
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEventStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEventStore) Update(ctx context.Context, e *models.Event) error {
	copied := *e
	f.events[e.ID] = &copied
	return nil
}

// Search returns every stored event that matches the state filter, date
// ascending; predicate evaluation beyond that lives in the real repository.
func (f *fakeEventStore) Search(ctx context.Context, filter Filter, sortByDate bool, page *Page) ([]*models.Event, error) {
	f.lastFilter = &filter
	var out []*models.Event
	for _, id := range f.order {
		e := f.events[id]
		if len(filter.States) > 0 && !containsState(filter.States, e.State) {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	if sortByDate {
		sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	}
	if page != nil {
		out = sliceWindow(out, page.From, page.Size)
	}
	return out, nil
}

func (f *fakeEventStore) ListByInitiator(ctx context.Context, initiatorID uuid.UUID, from, size int) ([]*models.Event, error) {
	var out []*models.Event
	for _, id := range f.order {
		e := f.events[id]
		if e.InitiatorID == initiatorID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return sliceWindow(out, from, size), nil
}

func (f *fakeEventStore) ByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Event, error) {
	var out []*models.Event
	for _, id := range ids {
		if e, ok := f.events[id]; ok {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func containsState(states []models.EventState, st models.EventState) bool {
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}

type fakeCategoryStore struct {
	categories map[uuid.UUID]models.Category
}

func (f *fakeCategoryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	cat, ok := f.categories[id]
	if !ok {
		return nil, apperr.NotFound("category with id=%s was not found", id)
	}
	return &cat, nil
}

func (f *fakeCategoryStore) ByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Category, error) {
	out := map[uuid.UUID]models.Category{}
	for _, id := range ids {
		if cat, ok := f.categories[id]; ok {
			out[id] = cat
		}
	}
	return out, nil
}

type fakeUserStore struct {
	users map[uuid.UUID]models.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user with id=%s was not found", id)
	}
	return &u, nil
}

func (f *fakeUserStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUserStore) ByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := map[uuid.UUID]models.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeCounter struct {
	counts map[uuid.UUID]int64
}

func (f *fakeCounter) ConfirmedCounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := map[uuid.UUID]int64{}
	for _, id := range ids {
		if n, ok := f.counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type fakeViews struct {
	byURI map[string]int64
}

func (f *fakeViews) Views(ctx context.Context, uris []string) map[string]int64 {
	out := map[string]int64{}
	for _, u := range uris {
		if n, ok := f.byURI[u]; ok {
			out[u] = n
		}
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *fakeEventStore
	cats   *fakeCategoryStore
	users  *fakeUserStore
	counts *fakeCounter
	views  *fakeViews

	catID  uuid.UUID
	userID uuid.UUID
}

func newFixture() *fixture {
	catID, userID := uuid.New(), uuid.New()
	f := &fixture{
		store:  newFakeEventStore(),
		cats:   &fakeCategoryStore{categories: map[uuid.UUID]models.Category{catID: {ID: catID, Name: "concerts"}}},
		users:  &fakeUserStore{users: map[uuid.UUID]models.User{userID: {ID: userID, Name: "Ann", Email: "ann@example.com"}}},
		counts: &fakeCounter{counts: map[uuid.UUID]int64{}},
		views:  &fakeViews{byURI: map[string]int64{}},
		catID:  catID,
		userID: userID,
	}
	f.svc = NewService(f.store, f.cats, f.users, f.counts, f.views, nil)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) addEvent(state models.EventState, date time.Time) uuid.UUID {
	id := uuid.New()
	f.store.events[id] = &models.Event{
		ID:          id,
		Title:       "title",
		CategoryID:  f.catID,
		InitiatorID: f.userID,
		EventDate:   date,
		State:       state,
		CreatedOn:   testNow,
	}
	f.store.order = append(f.store.order, id)
	return id
}

func TestPublicSearchSortsByViews(t *testing.T) {
	f := newFixture()
	older := f.addEvent(models.EventPublished, testNow.Add(3*time.Hour))
	newer := f.addEvent(models.EventPublished, testNow.Add(5*time.Hour))
	f.views.byURI[EventURI(older)] = 5
	f.views.byURI[EventURI(newer)] = 12

	list, err := f.svc.PublicSearch(context.Background(), PublicQuery{Sort: SortViews, From: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, int64(12), list[0].Views)
	assert.Equal(t, older, list[1].ID)
}

func TestPublicSearchDefaults(t *testing.T) {
	f := newFixture()
	f.addEvent(models.EventPublished, testNow.Add(3*time.Hour))
	f.addEvent(models.EventPending, testNow.Add(3*time.Hour))

	list, err := f.svc.PublicSearch(context.Background(), PublicQuery{Sort: SortEventDate, From: 0, Size: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1, "only published events are visible")

	require.NotNil(t, f.store.lastFilter)
	require.NotNil(t, f.store.lastFilter.RangeStart, "missing range start defaults to now")
	assert.Equal(t, testNow, *f.store.lastFilter.RangeStart)
	assert.Equal(t, []models.EventState{models.EventPublished}, f.store.lastFilter.States)
}

func TestPublicSearchInvalidRange(t *testing.T) {
	f := newFixture()
	start := testNow.Add(2 * time.Hour)
	end := testNow.Add(time.Hour)

	_, err := f.svc.PublicSearch(context.Background(), PublicQuery{RangeStart: &start, RangeEnd: &end, Size: 10})
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
}

func TestPublicGet(t *testing.T) {
	f := newFixture()

	t.Run("published event is enriched", func(t *testing.T) {
		id := f.addEvent(models.EventPublished, testNow.Add(3*time.Hour))
		f.counts.counts[id] = 7
		f.views.byURI[EventURI(id)] = 42

		full, err := f.svc.PublicGet(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(7), full.ConfirmedRequests)
		assert.Equal(t, int64(42), full.Views)
		assert.Equal(t, "concerts", full.Category.Name)
		assert.Equal(t, "Ann", full.Initiator.Name)
	})

	t.Run("missing stats fall back to zero", func(t *testing.T) {
		id := f.addEvent(models.EventPublished, testNow.Add(3*time.Hour))

		full, err := f.svc.PublicGet(context.Background(), id)
		require.NoError(t, err)
		assert.Zero(t, full.ConfirmedRequests)
		assert.Zero(t, full.Views)
	})

	t.Run("pending event is invisible", func(t *testing.T) {
		id := f.addEvent(models.EventPending, testNow.Add(3*time.Hour))

		_, err := f.svc.PublicGet(context.Background(), id)
		assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies documented defaults", func(t *testing.T) {
		f := newFixture()
		full, err := f.svc.Create(ctx, f.userID, NewEventInput{
			Title:      "Garden concert",
			CategoryID: f.catID,
			EventDate:  testNow.Add(3 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, models.EventPending, full.State)
		assert.False(t, full.Paid)
		assert.Zero(t, full.ParticipantLimit)
		assert.True(t, full.RequestModeration)
		assert.Empty(t, full.PublishedOn)
	})

	t.Run("date closer than two hours", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(ctx, f.userID, NewEventInput{
			CategoryID: f.catID,
			EventDate:  testNow.Add(90 * time.Minute),
		})
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(ctx, f.userID, NewEventInput{
			CategoryID: uuid.New(),
			EventDate:  testNow.Add(3 * time.Hour),
		})
		assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(ctx, uuid.New(), NewEventInput{
			CategoryID: f.catID,
			EventDate:  testNow.Add(3 * time.Hour),
		})
		assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	})
}

func TestUpdateByOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("patches fields and resubmits for review", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventCanceled, testNow.Add(5*time.Hour))
		title := "Updated title"

		full, err := f.svc.UpdateByOwner(ctx, f.userID, id, UpdateEventInput{
			Title:       &title,
			StateAction: ActionSendToReview,
		})
		require.NoError(t, err)
		assert.Equal(t, "Updated title", full.Title)
		assert.Equal(t, models.EventPending, full.State)
	})

	t.Run("cancel review", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPending, testNow.Add(5*time.Hour))

		full, err := f.svc.UpdateByOwner(ctx, f.userID, id, UpdateEventInput{StateAction: ActionCancelReview})
		require.NoError(t, err)
		assert.Equal(t, models.EventCanceled, full.State)
	})

	t.Run("published event is frozen", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPublished, testNow.Add(5*time.Hour))

		_, err := f.svc.UpdateByOwner(ctx, f.userID, id, UpdateEventInput{})
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})

	t.Run("date closer than two hours", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPending, testNow.Add(5*time.Hour))
		tooClose := testNow.Add(time.Hour)

		_, err := f.svc.UpdateByOwner(ctx, f.userID, id, UpdateEventInput{EventDate: &tooClose})
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})

	t.Run("cross-owner access narrows to not found", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPending, testNow.Add(5*time.Hour))
		stranger := uuid.New()
		f.users.users[stranger] = models.User{ID: stranger, Name: "Bob"}

		_, err := f.svc.UpdateByOwner(ctx, stranger, id, UpdateEventInput{})
		assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	})
}

func TestAdminUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("publish stamps published_on", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPending, testNow.Add(5*time.Hour))

		full, err := f.svc.AdminUpdate(ctx, id, UpdateEventInput{StateAction: ActionPublish})
		require.NoError(t, err)
		assert.Equal(t, models.EventPublished, full.State)
		assert.Equal(t, testNow.Format(DateTimeLayout), full.PublishedOn)
	})

	t.Run("publish with date too close", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPending, testNow.Add(30*time.Minute))

		_, err := f.svc.AdminUpdate(ctx, id, UpdateEventInput{StateAction: ActionPublish})
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})

	t.Run("publish twice", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPending, testNow.Add(5*time.Hour))
		_, err := f.svc.AdminUpdate(ctx, id, UpdateEventInput{StateAction: ActionPublish})
		require.NoError(t, err)

		_, err = f.svc.AdminUpdate(ctx, id, UpdateEventInput{StateAction: ActionPublish})
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})

	t.Run("reject pending event", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPending, testNow.Add(5*time.Hour))

		full, err := f.svc.AdminUpdate(ctx, id, UpdateEventInput{StateAction: ActionReject})
		require.NoError(t, err)
		assert.Equal(t, models.EventCanceled, full.State)
	})

	t.Run("reject published event", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPublished, testNow.Add(5*time.Hour))

		_, err := f.svc.AdminUpdate(ctx, id, UpdateEventInput{StateAction: ActionReject})
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})

	t.Run("field edits are not gated by state", func(t *testing.T) {
		f := newFixture()
		id := f.addEvent(models.EventPublished, testNow.Add(5*time.Hour))
		title := "Corrected title"

		full, err := f.svc.AdminUpdate(ctx, id, UpdateEventInput{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Corrected title", full.Title)
		assert.Equal(t, models.EventPublished, full.State)
	})
}

func TestShortsByIDs(t *testing.T) {
	f := newFixture()
	first := f.addEvent(models.EventPublished, testNow.Add(5*time.Hour))
	second := f.addEvent(models.EventPublished, testNow.Add(3*time.Hour))

	list, err := f.svc.ShortsByIDs(context.Background(), []uuid.UUID{second, uuid.New(), first})
	require.NoError(t, err)
	require.Len(t, list, 2, "unknown ids are skipped")
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
}
