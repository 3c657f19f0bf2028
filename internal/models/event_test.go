package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/apperr"
)

func TestPublish(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending event far enough in the future", func(t *testing.T) {
		e := Event{State: EventPending, EventDate: now.Add(2 * time.Hour)}

		require.NoError(t, e.Publish(now))
		assert.Equal(t, EventPublished, e.State)
		require.NotNil(t, e.PublishedOn)
		assert.Equal(t, now, *e.PublishedOn)
	})

	t.Run("event date too close", func(t *testing.T) {
		e := Event{State: EventPending, EventDate: now.Add(30 * time.Minute)}

		err := e.Publish(now)
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
		assert.Equal(t, EventPending, e.State)
		assert.Nil(t, e.PublishedOn)
	})

	t.Run("exactly one hour ahead is allowed", func(t *testing.T) {
		e := Event{State: EventPending, EventDate: now.Add(time.Hour)}

		assert.NoError(t, e.Publish(now))
	})

	t.Run("already published", func(t *testing.T) {
		published := now.Add(-time.Hour)
		e := Event{State: EventPublished, EventDate: now.Add(5 * time.Hour), PublishedOn: &published}

		err := e.Publish(now)
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
		assert.Equal(t, published, *e.PublishedOn, "publication timestamp must not move")
	})

	t.Run("canceled event", func(t *testing.T) {
		e := Event{State: EventCanceled, EventDate: now.Add(5 * time.Hour)}

		err := e.Publish(now)
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})
}

func TestReject(t *testing.T) {
	t.Run("pending event", func(t *testing.T) {
		e := Event{State: EventPending}

		require.NoError(t, e.Reject())
		assert.Equal(t, EventCanceled, e.State)
	})

	t.Run("published event cannot be rejected", func(t *testing.T) {
		e := Event{State: EventPublished}

		err := e.Reject()
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
		assert.Equal(t, EventPublished, e.State)
	})

	t.Run("canceled event stays canceled", func(t *testing.T) {
		e := Event{State: EventCanceled}

		require.NoError(t, e.Reject())
		assert.Equal(t, EventCanceled, e.State)
	})
}

func TestEditable(t *testing.T) {
	assert.True(t, (&Event{State: EventPending}).Editable())
	assert.True(t, (&Event{State: EventCanceled}).Editable())
	assert.False(t, (&Event{State: EventPublished}).Editable())
}

func TestInitialRequestStatus(t *testing.T) {
	assert.Equal(t, RequestConfirmed, InitialRequestStatus(0, true), "no limit means instant confirmation")
	assert.Equal(t, RequestConfirmed, InitialRequestStatus(5, false), "no moderation means instant confirmation")
	assert.Equal(t, RequestConfirmed, InitialRequestStatus(0, false))
	assert.Equal(t, RequestPending, InitialRequestStatus(5, true))
}

func TestParseEventState(t *testing.T) {
	st, ok := ParseEventState("PUBLISHED")
	require.True(t, ok)
	assert.Equal(t, EventPublished, st)

	_, ok = ParseEventState("published")
	assert.False(t, ok)

	_, ok = ParseEventState("")
	assert.False(t, ok)
}
