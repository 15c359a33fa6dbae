// Package service holds the authentication lifecycle: registration with
// auto-login, credential verification, session teardown and per-request
// identity resolution. Storage and hashing are injected, never global.
package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"leapsail/auth/hasher"
	"leapsail/auth/sessions"
	"leapsail/auth/storage"
	"leapsail/auth/users"
	"leapsail/internal/normalize"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "session"

var (
	// ErrUserExists reports a registration with a taken username.
	ErrUserExists = errors.New("username already taken")
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords. The two are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotAuthorized means the request carries no valid session.
	ErrNotAuthorized = errors.New("unauthorized")
	// ErrEmptyUsername rejects registration without an identifier.
	ErrEmptyUsername = errors.New("username must not be empty")
)

type Service struct {
	users    storage.UserStorage
	sessions storage.SessionStorage
	hasher   hasher.Hasher
	secret   []byte
	ttl      time.Duration
	log      *logrus.Entry
}

func New(cfg Config, userStorage storage.UserStorage, sessionStorage storage.SessionStorage, h hasher.Hasher, l *logrus.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is not set")
	}
	ttl, err := time.ParseDuration(cfg.Expiration)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:    userStorage,
		sessions: sessionStorage,
		hasher:   h,
		secret:   []byte(cfg.Secret),
		ttl:      ttl,
		log:      l.WithFields(map[string]interface{}{"from": "auth-service"}),
	}, nil
}

// SignUp creates a user with the given credentials and an empty profile.
func (s *Service) SignUp(ctx context.Context, username string, password string) (users.User, error) {
	if username == "" {
		return users.User{}, ErrEmptyUsername
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return users.User{}, err
	}
	user := users.User{
		ID:           uuid.New(),
		Username:     username,
		RegisteredAt: time.Now(),
	}
	err = s.users.CreateUser(ctx, user, hash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return users.User{}, ErrUserExists
		}
		return users.User{}, err
	}
	return user, nil
}

// Login verifies the credentials and opens a new session. Unknown users and
// wrong passwords both return ErrInvalidCredentials; storage failures
// propagate untouched so they cannot be mistaken for bad credentials.
func (s *Service) Login(ctx context.Context, username string, password string) (sessions.Session, users.User, error) {
	hash, err := s.users.GetUserSecret(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessions.Session{}, users.User{}, ErrInvalidCredentials
		}
		return sessions.Session{}, users.User{}, err
	}
	if !s.hasher.Verify(hash, password) {
		return sessions.Session{}, users.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessions.Session{}, users.User{}, ErrInvalidCredentials
		}
		return sessions.Session{}, users.User{}, err
	}
	token, err := randomToken()
	if err != nil {
		return sessions.Session{}, users.User{}, err
	}
	now := time.Now()
	session := sessions.Session{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		return sessions.Session{}, users.User{}, err
	}
	return session, user, nil
}

// Register runs the signup, logs the fresh user in with the same credentials
// and writes the profile fields. A created user survives a failed auto-login.
// A failed profile update is logged and absorbed: the session stays
// authenticated with an empty profile.
func (s *Service) Register(ctx context.Context, username string, password string, profile users.Profile) (sessions.Session, users.User, error) {
	user, err := s.SignUp(ctx, username, password)
	if err != nil {
		return sessions.Session{}, users.User{}, err
	}
	session, user, err := s.Login(ctx, username, password)
	if err != nil {
		return sessions.Session{}, users.User{}, err
	}
	err = s.UpdateProfile(ctx, user.ID, profile)
	if err != nil {
		s.log.WithError(err).WithField("user", username).Warn("profile update failed")
		return session, user, nil
	}
	updated, err := s.users.GetUser(ctx, user.ID)
	if err != nil {
		s.log.WithError(err).WithField("user", username).Warn("reading back profile failed")
		return session, user, nil
	}
	return session, updated, nil
}

// UpdateProfile stores the profile with names and role capitalized. The
// phone number is stored as entered.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, profile users.Profile) error {
	return s.users.UpdateProfile(ctx, id, users.Profile{
		FirstName: normalize.Name(profile.FirstName),
		LastName:  normalize.Name(profile.LastName),
		Role:      normalize.Name(profile.Role),
		Phone:     profile.Phone,
	})
}

// Resolve maps a request cookie to the user it authenticates. Any broken
// link in the chain (bad signature, unknown or expired session, deleted
// user) resolves to ErrNotAuthorized; sessions pointing at deleted users
// are purged on the way out.
func (s *Service) Resolve(ctx context.Context, cookie string) (users.User, error) {
	token, err := s.sessionToken(cookie)
	if err != nil {
		return users.User{}, ErrNotAuthorized
	}
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, ErrNotAuthorized
		}
		return users.User{}, err
	}
	if session.Expired(time.Now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			s.log.WithError(err).Warn("deleting expired session failed")
		}
		return users.User{}, ErrNotAuthorized
	}
	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := s.sessions.DeleteSession(ctx, token); err != nil {
				s.log.WithError(err).Warn("deleting orphaned session failed")
			}
			return users.User{}, ErrNotAuthorized
		}
		return users.User{}, err
	}
	return user, nil
}

// Logout destroys the session behind the cookie. A missing or invalid
// cookie is a no-op; the caller treats the client as logged out either way.
func (s *Service) Logout(ctx context.Context, cookie string) error {
	token, err := s.sessionToken(cookie)
	if err != nil {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// GenerateCookie signs the session token into the cookie the browser keeps.
func (s *Service) GenerateCookie(session sessions.Session, host string) (*fiber.Cookie, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		ExpiresAt: session.ExpiresAt.Unix(),
		IssuedAt:  session.CreatedAt.Unix(),
		Subject:   session.Token,
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &fiber.Cookie{
		Name:     CookieName,
		Value:    tokenString,
		Path:     "/",
		Domain:   host,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
	}, nil
}

func (s *Service) sessionToken(cookie string) (string, error) {
	if cookie == "" {
		return "", ErrNotAuthorized
	}
	token, err := jwt.ParseWithClaims(cookie, &jwt.StandardClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrNotAuthorized
	}
	claims, ok := token.Claims.(*jwt.StandardClaims)
	if !ok || claims.Subject == "" {
		return "", ErrNotAuthorized
	}
	return claims.Subject, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	_, err := rand.Read(buf)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
