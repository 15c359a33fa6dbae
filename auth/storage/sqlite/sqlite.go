package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"leapsail/auth/gen/model"
	"leapsail/auth/gen/table"
	"leapsail/auth/sessions"
	"leapsail/auth/storage"
	"leapsail/auth/users"
	"leapsail/internal/config"
	migrations "leapsail/internal/migrate"

	"github.com/go-jet/jet/v2/qrm"
	jetsqlite "github.com/go-jet/jet/v2/sqlite"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ storage.UserStorage = (*Storage)(nil)
var _ storage.SessionStorage = (*Storage)(nil)

func New(l *logrus.Logger, cfg config.Config) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "auth-storage",
	})
	db, err := sql.Open("sqlite3", buildSource(cfg.Auth.SqliteFile))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	err = migrations.UpAuthDB(db)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}
	log.Info("auth storage connected")
	return &Storage{
		db:  db,
		log: log,
	}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) CreateUser(ctx context.Context, user users.User, passwordHash []byte) error {
	dbUser := model.Users{
		ID:           user.ID.String(),
		Username:     user.Username,
		PasswordHash: bytesToHex(passwordHash),
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.Role,
		Phone:        user.Phone,
		CreatedAt:    user.RegisteredAt,
	}
	_, err := table.Users.INSERT(table.Users.AllColumns).MODEL(dbUser).ExecContext(ctx, s.db)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserExists
		}
		return err
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	var dbUser model.Users
	err := table.Users.
		SELECT(table.Users.AllColumns.Except(table.Users.PasswordHash)).
		FROM(table.Users).
		WHERE(table.Users.ID.EQ(jetsqlite.String(id.String()))).
		QueryContext(ctx, s.db, &dbUser)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.User{}, sql.ErrNoRows
		}
		return users.User{}, err
	}
	return convertUser(dbUser)
}

func (s *Storage) GetUserByName(ctx context.Context, name string) (users.User, error) {
	var dbUser model.Users
	err := table.Users.
		SELECT(table.Users.AllColumns.Except(table.Users.PasswordHash)).
		FROM(table.Users).
		WHERE(table.Users.Username.EQ(jetsqlite.String(name))).
		QueryContext(ctx, s.db, &dbUser)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.User{}, sql.ErrNoRows
		}
		return users.User{}, err
	}
	return convertUser(dbUser)
}

func (s *Storage) GetUserSecret(ctx context.Context, name string) ([]byte, error) {
	var dbUser model.Users
	err := table.Users.
		SELECT(table.Users.PasswordHash).
		FROM(table.Users).
		WHERE(table.Users.Username.EQ(jetsqlite.String(name))).
		QueryContext(ctx, s.db, &dbUser)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return hexToBytes(dbUser.PasswordHash)
}

func (s *Storage) UpdateProfile(ctx context.Context, id uuid.UUID, profile users.Profile) error {
	res, err := table.Users.
		UPDATE(table.Users.FirstName, table.Users.LastName, table.Users.Role, table.Users.Phone).
		SET(
			jetsqlite.String(profile.FirstName),
			jetsqlite.String(profile.LastName),
			jetsqlite.String(profile.Role),
			jetsqlite.String(profile.Phone),
		).
		WHERE(table.Users.ID.EQ(jetsqlite.String(id.String()))).
		ExecContext(ctx, s.db)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Storage) CreateSession(ctx context.Context, session sessions.Session) error {
	dbSession := model.Sessions{
		Token:     session.Token,
		UserID:    session.UserID.String(),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	_, err := table.Sessions.INSERT(table.Sessions.AllColumns).MODEL(dbSession).ExecContext(ctx, s.db)
	return err
}

func (s *Storage) GetSession(ctx context.Context, token string) (sessions.Session, error) {
	var dbSession model.Sessions
	err := table.Sessions.
		SELECT(table.Sessions.AllColumns).
		FROM(table.Sessions).
		WHERE(table.Sessions.Token.EQ(jetsqlite.String(token))).
		QueryContext(ctx, s.db, &dbSession)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return sessions.Session{}, sql.ErrNoRows
		}
		return sessions.Session{}, err
	}
	return convertSession(dbSession)
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	_, err := table.Sessions.
		DELETE().
		WHERE(table.Sessions.Token.EQ(jetsqlite.String(token))).
		ExecContext(ctx, s.db)
	return err
}

func convertUser(user model.Users) (users.User, error) {
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return users.User{}, err
	}
	return users.User{
		ID:           id,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.Role,
		Phone:        user.Phone,
		RegisteredAt: user.CreatedAt,
	}, nil
}

func convertSession(session model.Sessions) (sessions.Session, error) {
	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		return sessions.Session{}, err
	}
	return sessions.Session{
		Token:     session.Token,
		UserID:    userID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func buildSource(fileName string) string {
	if strings.HasPrefix(fileName, "file:") {
		return fileName
	}
	return "file:" + fileName + "?cache=shared"
}

func bytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

func hexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
