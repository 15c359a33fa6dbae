// Package memory holds users and sessions in process memory. It backs the
// tests and runs the app without a database file.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"leapsail/auth/sessions"
	"leapsail/auth/storage"
	"leapsail/auth/users"

	"github.com/google/uuid"
)

type record struct {
	user users.User
	hash []byte
}

type Storage struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]record
	names    map[string]uuid.UUID
	sessions map[string]sessions.Session
}

var _ storage.UserStorage = (*Storage)(nil)
var _ storage.SessionStorage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]record),
		names:    make(map[string]uuid.UUID),
		sessions: make(map[string]sessions.Session),
	}
}

func (s *Storage) CreateUser(_ context.Context, user users.User, passwordHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[user.Username]; ok {
		return storage.ErrUserExists
	}
	hash := make([]byte, len(passwordHash))
	copy(hash, passwordHash)
	s.users[user.ID] = record{user: user, hash: hash}
	s.names[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(_ context.Context, id uuid.UUID) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return users.User{}, sql.ErrNoRows
	}
	return rec.user, nil
}

func (s *Storage) GetUserByName(_ context.Context, name string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[name]
	if !ok {
		return users.User{}, sql.ErrNoRows
	}
	return s.users[id].user, nil
}

func (s *Storage) GetUserSecret(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s.users[id].hash, nil
}

func (s *Storage) UpdateProfile(_ context.Context, id uuid.UUID, profile users.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	rec.user.FirstName = profile.FirstName
	rec.user.LastName = profile.LastName
	rec.user.Role = profile.Role
	rec.user.Phone = profile.Phone
	s.users[id] = rec
	return nil
}

// DeleteUser is only needed by tests exercising orphaned sessions.
func (s *Storage) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(s.names, rec.user.Username)
	delete(s.users, id)
	return nil
}

func (s *Storage) CreateSession(_ context.Context, session sessions.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *Storage) GetSession(_ context.Context, token string) (sessions.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return sessions.Session{}, sql.ErrNoRows
	}
	return session, nil
}

func (s *Storage) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// SessionCount is only needed by tests.
func (s *Storage) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
