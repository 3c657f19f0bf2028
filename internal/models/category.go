package models

import "github.com/google/uuid"

// Category classifies events. Names are unique.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
