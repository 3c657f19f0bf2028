package models

import "github.com/google/uuid"

// User is a registered platform user.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// UserShort is the initiator view embedded into event representations.
type UserShort struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Short returns the embedded view of the user.
func (u *User) Short() UserShort {
	return UserShort{ID: u.ID, Name: u.Name}
}
