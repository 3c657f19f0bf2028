package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/apperr"
)

// EventState is the moderation lifecycle state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// ParseEventState validates a state string coming from query parameters.
func ParseEventState(s string) (EventState, bool) {
	switch EventState(s) {
	case EventPending, EventPublished, EventCanceled:
		return EventState(s), true
	}
	return "", false
}

// Location is a lat/lon pair attached to an event.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MinLeadTimeCreate is the minimum distance between "now" and the event date
// when an owner creates or reschedules an event.
const MinLeadTimeCreate = 2 * time.Hour

// MinLeadTimePublish is the minimum distance between "now" and the event date
// when an admin publishes an event.
const MinLeadTimePublish = 1 * time.Hour

// Event is a public event subject to moderated publication.
type Event struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	CategoryID        uuid.UUID  `json:"category_id"`
	InitiatorID       uuid.UUID  `json:"initiator_id"`
	EventDate         time.Time  `json:"event_date"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participant_limit"`
	RequestModeration bool       `json:"request_moderation"`
	State             EventState `json:"state"`
	CreatedOn         time.Time  `json:"created_on"`
	PublishedOn       *time.Time `json:"published_on,omitempty"`
}

// Editable reports whether the owner may still change the event.
// Published events are frozen for the owner.
func (e *Event) Editable() bool {
	return e.State == EventPending || e.State == EventCanceled
}

// Publish moves PENDING -> PUBLISHED and stamps published_on exactly once.
func (e *Event) Publish(now time.Time) error {
	if e.State != EventPending {
		return apperr.Conflict("event can be published only from PENDING state, current state: %s", e.State)
	}
	if e.EventDate.Before(now.Add(MinLeadTimePublish)) {
		return apperr.Conflict("event date must be at least 1 hour from now to publish")
	}
	t := now
	e.State = EventPublished
	e.PublishedOn = &t
	return nil
}

// Reject moves a not-yet-published event to CANCELED. published_on, if it was
// ever set, is kept.
func (e *Event) Reject() error {
	if e.State == EventPublished {
		return apperr.Conflict("published event cannot be rejected")
	}
	e.State = EventCanceled
	return nil
}

// SendToReview puts the event back into the moderation queue.
func (e *Event) SendToReview() {
	e.State = EventPending
}

// CancelReview withdraws the event from moderation.
func (e *Event) CancelReview() {
	e.State = EventCanceled
}
