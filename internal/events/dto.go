package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/models"
)

// DateTimeLayout is the wire format for event dates and range filters.
const DateTimeLayout = "2006-01-02 15:04:05"

// EventURI is the canonical resource path used as the stats key for an event.
func EventURI(id uuid.UUID) string {
	return "/events/" + id.String()
}

// EventFull is the complete event representation returned to owners, admins
// and public detail requests, enriched with confirmed-request and view counts.
type EventFull struct {
	ID                uuid.UUID         `json:"id"`
	Title             string            `json:"title"`
	Annotation        string            `json:"annotation"`
	Description       string            `json:"description"`
	Category          models.Category   `json:"category"`
	Initiator         models.UserShort  `json:"initiator"`
	EventDate         string            `json:"event_date"`
	Location          models.Location   `json:"location"`
	Paid              bool              `json:"paid"`
	ParticipantLimit  int               `json:"participant_limit"`
	RequestModeration bool              `json:"request_moderation"`
	State             models.EventState `json:"state"`
	CreatedOn         string            `json:"created_on"`
	PublishedOn       string            `json:"published_on,omitempty"`
	ConfirmedRequests int64             `json:"confirmed_requests"`
	Views             int64             `json:"views"`
}

// EventShort is the condensed listing representation.
type EventShort struct {
	ID                uuid.UUID        `json:"id"`
	Title             string           `json:"title"`
	Annotation        string           `json:"annotation"`
	Category          models.Category  `json:"category"`
	Initiator         models.UserShort `json:"initiator"`
	EventDate         string           `json:"event_date"`
	Paid              bool             `json:"paid"`
	ConfirmedRequests int64            `json:"confirmed_requests"`
	Views             int64            `json:"views"`
}

func formatDate(t time.Time) string {
	return t.Format(DateTimeLayout)
}

func toFull(e *models.Event, cat models.Category, initiator models.UserShort, confirmed, views int64) EventFull {
	out := EventFull{
		ID:                e.ID,
		Title:             e.Title,
		Annotation:        e.Annotation,
		Description:       e.Description,
		Category:          cat,
		Initiator:         initiator,
		EventDate:         formatDate(e.EventDate),
		Location:          e.Location,
		Paid:              e.Paid,
		ParticipantLimit:  e.ParticipantLimit,
		RequestModeration: e.RequestModeration,
		State:             e.State,
		CreatedOn:         formatDate(e.CreatedOn),
		ConfirmedRequests: confirmed,
		Views:             views,
	}
	if e.PublishedOn != nil {
		out.PublishedOn = formatDate(*e.PublishedOn)
	}
	return out
}

func toShort(e *models.Event, cat models.Category, initiator models.UserShort, confirmed, views int64) EventShort {
	return EventShort{
		ID:                e.ID,
		Title:             e.Title,
		Annotation:        e.Annotation,
		Category:          cat,
		Initiator:         initiator,
		EventDate:         formatDate(e.EventDate),
		Paid:              e.Paid,
		ConfirmedRequests: confirmed,
		Views:             views,
	}
}
