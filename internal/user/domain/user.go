package domain

import (
	"errors"
	"time"
)

// User is the core user entity. A user exists independent of any org and is
// joined to orgs via memberships.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
