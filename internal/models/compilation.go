package models

import "github.com/google/uuid"

// Compilation is a named curated ordered set of events.
type Compilation struct {
	ID       uuid.UUID   `json:"id"`
	Title    string      `json:"title"`
	Pinned   bool        `json:"pinned"`
	EventIDs []uuid.UUID `json:"-"`
}
