// ABOUTME: Store interfaces and data types for logon-gateway persistence
// ABOUTME: Defines users provisioned from trusted logins, session values and audit entries

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when a username has no local user record
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when trying to create a user with an existing username
var ErrUsernameExists = errors.New("username already exists")

// ErrSessionValueNotFound is returned when a session key is unset or expired
var ErrSessionValueNotFound = errors.New("session value not found")

// User is a local user record created on first sight of a trusted identity
type User struct {
	ID        string
	Username  string
	Role      string
	CreatedAt time.Time
	LastLogin *time.Time
}

// UserStore persists local user records
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	TouchUser(ctx context.Context, username string, at time.Time) error
	ListUsers(ctx context.Context) ([]*User, error)

	// EnsureUser returns nil when the user exists, creating it with role when
	// autoCreate is set. Otherwise it returns ErrUserNotFound.
	EnsureUser(ctx context.Context, username string, autoCreate bool, role string) error
}

// SessionStore persists per-session key/value pairs
type SessionStore interface {
	SetSessionValue(ctx context.Context, sessionID, key, value string, expiresAt time.Time) error
	GetSessionValue(ctx context.Context, sessionID, key string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Store combines all persistence interfaces
type Store interface {
	UserStore
	SessionStore
	AuditStore

	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
