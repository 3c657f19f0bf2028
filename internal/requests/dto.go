package requests

import (
	"github.com/google/uuid"

	"github.com/gatherly/backend/internal/models"
)

// DateTimeLayout is the wire format for request timestamps.
const DateTimeLayout = "2006-01-02 15:04:05"

// RequestView is the external representation of a participation request.
type RequestView struct {
	ID        uuid.UUID            `json:"id"`
	Created   string               `json:"created"`
	EventID   uuid.UUID            `json:"event"`
	Requester uuid.UUID            `json:"requester"`
	Status    models.RequestStatus `json:"status"`
}

// StatusUpdateResult is the outcome of an owner-driven batch status change.
type StatusUpdateResult struct {
	ConfirmedRequests []RequestView `json:"confirmed_requests"`
	RejectedRequests  []RequestView `json:"rejected_requests"`
}

func toView(r models.ParticipationRequest) RequestView {
	return RequestView{
		ID:        r.ID,
		Created:   r.Created.Format(DateTimeLayout),
		EventID:   r.EventID,
		Requester: r.RequesterID,
		Status:    r.Status,
	}
}

func toViews(rs []models.ParticipationRequest) []RequestView {
	out := make([]RequestView, 0, len(rs))
	for _, r := range rs {
		out = append(out, toView(r))
	}
	return out
}
