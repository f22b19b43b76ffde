package domain

import "time"

// User is the domain model for principals. Either role flag grants
// elevated access to all tickets.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
