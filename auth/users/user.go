package users

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Username     string
	FirstName    string
	LastName     string
	Role         string
	Phone        string
	RegisteredAt time.Time
}

// Profile holds the optional fields written after registration.
type Profile struct {
	FirstName string
	LastName  string
	Role      string
	Phone     string
}

// Initials returns the first letters of the first and last name, e.g. "JD".
// Missing parts are skipped.
func (u User) Initials() string {
	initials := ""
	for _, name := range []string{u.FirstName, u.LastName} {
		for _, r := range name {
			initials += string(r)
			break
		}
	}
	return initials
}

func (u User) IsAnonymous() bool {
	return u.ID == uuid.Nil
}
