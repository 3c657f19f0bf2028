package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the state of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// ParticipationRequest is one user's request to join one event. Event and
// requester never change after creation; only the status does.
type ParticipationRequest struct {
	ID          uuid.UUID     `json:"id"`
	Created     time.Time     `json:"created"`
	EventID     uuid.UUID     `json:"event"`
	RequesterID uuid.UUID     `json:"requester"`
	Status      RequestStatus `json:"status"`
}

// InitialRequestStatus decides the status a freshly created request gets:
// immediate CONFIRMED when the event has no limit or moderation is off,
// PENDING otherwise.
func InitialRequestStatus(participantLimit int, requestModeration bool) RequestStatus {
	if participantLimit == 0 || !requestModeration {
		return RequestConfirmed
	}
	return RequestPending
}
