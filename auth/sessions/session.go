package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Session maps an opaque server-side token to the user it authenticates.
type Session struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
