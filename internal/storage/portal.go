// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/sessionguard/internal/clock"
)

// DefaultInactivityTimeout is the community timeout before an admin sets
// one.
const DefaultInactivityTimeout = 30 * time.Minute

const portalSchema = `
CREATE TABLE IF NOT EXISTS community (
	id                         INTEGER PRIMARY KEY CHECK (id = 1),
	inactivity_timeout_seconds INTEGER NOT NULL,
	updated_at                 INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash BLOB NOT NULL,
	is_admin      INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	revoked_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`

// User is a portal account.
type User struct {
	ID        string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// Session is an issued login token.
type Session struct {
	Token     string
	UserID    string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PortalStore holds the server-side state of the portal.
type PortalStore struct {
	db  *sql.DB
	clk clock.Clock
}

// OpenPortal opens the portal database at path. A nil clock uses real
// time.
func OpenPortal(path string, clk clock.Clock) (*PortalStore, error) {
	db, err := openDB(path, portalSchema)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &PortalStore{db: db, clk: clk}, nil
}

// Close closes the database.
func (s *PortalStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// COMMUNITY SETTINGS
// =============================================================================

// GetInactivityTimeout returns the community inactivity timeout.
func (s *PortalStore) GetInactivityTimeout(ctx context.Context) (time.Duration, error) {
	var secs int64
	err := s.db.QueryRowContext(ctx,
		"SELECT inactivity_timeout_seconds FROM community WHERE id = 1").Scan(&secs)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultInactivityTimeout, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get inactivity timeout: %v", ErrDatabaseError, err)
	}
	return time.Duration(secs) * time.Second, nil
}

// SetInactivityTimeout stores the community inactivity timeout. Range
// checks belong to the caller.
func (s *PortalStore) SetInactivityTimeout(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("inactivity timeout must be positive, got %s", d)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community (id, inactivity_timeout_seconds, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			inactivity_timeout_seconds = excluded.inactivity_timeout_seconds,
			updated_at = excluded.updated_at`,
		int64(d/time.Second), s.clk.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: set inactivity timeout: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser adds an account with a bcrypt-hashed password.
func (s *PortalStore) CreateUser(ctx context.Context, email, password string, admin bool) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		IsAdmin:   admin,
		CreatedAt: s.clk.Now().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Email, hash, boolToInt(admin), u.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return nil, fmt.Errorf("%w: create user: %v", ErrDatabaseError, err)
	}
	return u, nil
}

// VerifyUser checks a password and returns the account. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (s *PortalStore) VerifyUser(ctx context.Context, email, password string) (*User, error) {
	var (
		u       User
		hash    []byte
		isAdmin int
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, is_admin, created_at FROM users WHERE email = ?",
		normalizeEmail(email)).Scan(&u.ID, &u.Email, &hash, &isAdmin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: verify user: %v", ErrDatabaseError, err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	u.IsAdmin = isAdmin != 0
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession issues a token for userID valid for ttl.
func (s *PortalStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	now := s.clk.Now().UTC().Truncate(time.Second)
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		sess.Token, sess.UserID, sess.CreatedAt.Unix(), sess.ExpiresAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrDatabaseError, err)
	}
	return sess, nil
}

// LookupSession returns the live session for token.
func (s *PortalStore) LookupSession(ctx context.Context, token string) (*Session, error) {
	var (
		sess             Session
		isAdmin          int
		created, expires int64
		revoked          sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT s.token, s.user_id, u.email, u.is_admin, s.created_at, s.expires_at, s.revoked_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`, token).Scan(
		&sess.Token, &sess.UserID, &sess.Email, &isAdmin, &created, &expires, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup session: %v", ErrDatabaseError, err)
	}
	if revoked.Valid {
		return nil, ErrSessionRevoked
	}

	sess.IsAdmin = isAdmin != 0
	sess.CreatedAt = time.Unix(created, 0).UTC()
	sess.ExpiresAt = time.Unix(expires, 0).UTC()
	if !s.clk.Now().Before(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// RevokeSession marks token revoked. Unknown or already revoked tokens
// return ErrSessionNotFound.
func (s *PortalStore) RevokeSession(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL",
		s.clk.Now().Unix(), token)
	if err != nil {
		return fmt.Errorf("%w: revoke session: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: revoke session: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ActiveSessions counts sessions that are neither revoked nor expired.
func (s *PortalStore) ActiveSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE revoked_at IS NULL AND expires_at > ?",
		s.clk.Now().Unix()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count sessions: %v", ErrDatabaseError, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
