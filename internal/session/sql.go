// ABOUTME: Session backend on top of the SQLite store
// ABOUTME: Sessions survive gateway restarts and are shared by processes using the same database

package session

import (
	"context"
	"errors"
	"time"

	"github.com/2389/logon-gateway/internal/store"
)

// SQLStore adapts store.SessionStore to Store.
type SQLStore struct {
	db       store.SessionStore
	lifetime time.Duration
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps db. Values expire lifetime after the session's last write.
func NewSQLStore(db store.SessionStore, lifetime time.Duration) *SQLStore {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &SQLStore{db: db, lifetime: lifetime}
}

func (s *SQLStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	v, err := s.db.GetSessionValue(ctx, sessionID, key)
	if errors.Is(err, store.ErrSessionValueNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLStore) Set(ctx context.Context, sessionID, key, value string) error {
	return s.db.SetSessionValue(ctx, sessionID, key, value, time.Now().Add(s.lifetime))
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	return s.db.DeleteSession(ctx, sessionID)
}

// Purge removes expired sessions.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	return s.db.DeleteExpiredSessions(ctx)
}
