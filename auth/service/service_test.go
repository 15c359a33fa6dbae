package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leapsail/auth/hasher"
	"leapsail/auth/sessions"
	"leapsail/auth/storage"
	"leapsail/auth/storage/memory"
	"leapsail/auth/users"
	"leapsail/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, store *memory.Storage) *Service {
	t.Helper()
	s, err := New(Config{
		Secret:     "test-secret",
		Expiration: "1h",
	}, store, store, hasher.NewBcrypt(), logger.New())
	require.NoError(t, err)
	return s
}

func TestRegisterThenResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newService(t, store)

	session, user, err := s.Register(ctx, "alice", "secret1", users.Profile{
		FirstName: "jane",
		LastName:  "doe",
		Role:      "admin",
		Phone:     "555-0100",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "Doe", user.LastName)
	assert.Equal(t, "Admin", user.Role)
	assert.Equal(t, "555-0100", user.Phone)
	assert.Equal(t, "JD", user.Initials())

	cookie, err := s.GenerateCookie(session, "localhost")
	require.NoError(t, err)
	resolved, err := s.Resolve(ctx, cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, "alice", resolved.Username)
}

func TestRegisterEmptyUsername(t *testing.T) {
	s := newService(t, memory.New())
	_, _, err := s.Register(context.Background(), "", "secret1", users.Profile{})
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newService(t, store)

	_, first, err := s.Register(ctx, "alice", "secret1", users.Profile{FirstName: "jane"})
	require.NoError(t, err)

	_, _, err = s.Register(ctx, "alice", "other", users.Profile{FirstName: "mallory"})
	assert.ErrorIs(t, err, ErrUserExists)

	// the existing record is untouched
	existing, err := store.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, existing.ID)
	assert.Equal(t, "Jane", existing.FirstName)
	_, _, err = s.Login(ctx, "alice", "secret1")
	assert.NoError(t, err)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	s := newService(t, memory.New())
	_, _, err := s.Register(ctx, "alice", "secret1", users.Profile{})
	require.NoError(t, err)

	_, _, wrongPassword := s.Login(ctx, "alice", "wrong")
	_, _, unknownUser := s.Login(ctx, "nobody", "whatever")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	s := newService(t, memory.New())
	_, _, err := s.Register(ctx, "alice", "secret1", users.Profile{})
	require.NoError(t, err)

	session, _, err := s.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	cookie, err := s.GenerateCookie(session, "localhost")
	require.NoError(t, err)

	_, err = s.Resolve(ctx, cookie.Value)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, cookie.Value))
	_, err = s.Resolve(ctx, cookie.Value)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestLogoutWithoutSession(t *testing.T) {
	s := newService(t, memory.New())
	assert.NoError(t, s.Logout(context.Background(), ""))
	assert.NoError(t, s.Logout(context.Background(), "garbage"))
}

func TestResolveGarbageCookie(t *testing.T) {
	s := newService(t, memory.New())
	_, err := s.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = s.Resolve(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolveOrphanedSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newService(t, store)
	session, user, err := s.Register(ctx, "alice", "secret1", users.Profile{})
	require.NoError(t, err)
	cookie, err := s.GenerateCookie(session, "localhost")
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, user.ID))

	_, err = s.Resolve(ctx, cookie.Value)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	// the orphaned session is purged lazily
	assert.Equal(t, 0, store.SessionCount())
}

// failingUpdates wraps the memory store and fails UpdateProfile only.
type failingUpdates struct {
	*memory.Storage
}

var _ storage.UserStorage = failingUpdates{}

func (f failingUpdates) UpdateProfile(context.Context, uuid.UUID, users.Profile) error {
	return errors.New("storage unavailable")
}

func TestRegisterProfileUpdateFailureIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s, err := New(Config{
		Secret:     "test-secret",
		Expiration: "1h",
	}, failingUpdates{store}, store, hasher.NewBcrypt(), logger.New())
	require.NoError(t, err)

	session, user, err := s.Register(ctx, "alice", "secret1", users.Profile{FirstName: "jane"})
	require.NoError(t, err)
	assert.Empty(t, user.FirstName)

	cookie, err := s.GenerateCookie(session, "localhost")
	require.NoError(t, err)
	resolved, err := s.Resolve(ctx, cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Username)
}

// failingReads wraps the memory store and fails GetUser only.
type failingReads struct {
	*memory.Storage
}

var _ storage.UserStorage = failingReads{}

func (f failingReads) GetUser(context.Context, uuid.UUID) (users.User, error) {
	return users.User{}, errors.New("storage unavailable")
}

func TestRegisterKeepsUserWhenReadBackFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s, err := New(Config{
		Secret:     "test-secret",
		Expiration: "1h",
	}, failingReads{store}, store, hasher.NewBcrypt(), logger.New())
	require.NoError(t, err)

	_, user, err := s.Register(ctx, "alice", "secret1", users.Profile{FirstName: "jane"})
	require.NoError(t, err)
	assert.False(t, user.IsAnonymous())
	assert.Equal(t, "alice", user.Username)

	// the profile itself was written, only the read-back failed
	stored, err := store.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Jane", stored.FirstName)
}

// downSecrets wraps the memory store and fails every secret lookup.
type downSecrets struct {
	*memory.Storage
}

var _ storage.UserStorage = downSecrets{}

var errStoreDown = errors.New("storage unavailable")

func (d downSecrets) GetUserSecret(context.Context, string) ([]byte, error) {
	return nil, errStoreDown
}

func TestLoginStoreErrorIsNotMaskedAsCredentials(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s, err := New(Config{
		Secret:     "test-secret",
		Expiration: "1h",
	}, downSecrets{store}, store, hasher.NewBcrypt(), logger.New())
	require.NoError(t, err)
	_, err = s.SignUp(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, _, err = s.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

// alwaysFailHasher makes the auto-login step fail after a successful signup.
type alwaysFailHasher struct{}

func (alwaysFailHasher) Hash(string) ([]byte, error) { return []byte("x"), nil }
func (alwaysFailHasher) Verify([]byte, string) bool  { return false }

func TestRegisterSurvivesFailedAutoLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s, err := New(Config{
		Secret:     "test-secret",
		Expiration: "1h",
	}, store, store, alwaysFailHasher{}, logger.New())
	require.NoError(t, err)

	_, _, err = s.Register(ctx, "alice", "secret1", users.Profile{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// the created user is not rolled back
	_, err = store.GetUserByName(ctx, "alice")
	assert.NoError(t, err)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newService(t, store)
	_, _, err := s.Register(ctx, "alice", "secret1", users.Profile{})
	require.NoError(t, err)
	session, _, err := s.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	// backdate the stored session past its expiry, keep the cookie valid
	expired := session
	expired.ExpiresAt = session.CreatedAt.Add(-time.Minute)
	require.NoError(t, store.CreateSession(ctx, expired))
	cookie, err := s.GenerateCookie(sessions.Session{
		Token:     session.Token,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.CreatedAt.Add(time.Hour),
	}, "localhost")
	require.NoError(t, err)

	_, err = s.Resolve(ctx, cookie.Value)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
