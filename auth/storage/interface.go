package storage

import (
	"context"
	"errors"
	"leapsail/auth/sessions"
	"leapsail/auth/users"

	"github.com/google/uuid"
)

// ErrUserExists is returned by CreateUser when the username is taken.
// Missing records are reported as sql.ErrNoRows.
var ErrUserExists = errors.New("user already exists")

type UserStorage interface {
	CreateUser(ctx context.Context, user users.User, passwordHash []byte) error
	GetUser(ctx context.Context, id uuid.UUID) (users.User, error)
	GetUserByName(ctx context.Context, name string) (users.User, error)
	GetUserSecret(ctx context.Context, name string) ([]byte, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, profile users.Profile) error
}

type SessionStorage interface {
	CreateSession(ctx context.Context, session sessions.Session) error
	GetSession(ctx context.Context, token string) (sessions.Session, error)
	DeleteSession(ctx context.Context, token string) error
}
