// ABOUTME: Session storage backends and the per-request session handle
// ABOUTME: Bind turns a backend plus session ID into the Session a logon module writes to

package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/2389/logon-gateway/internal/logon"
)

// ErrNotFound is returned by Store.Get when the key is unset or expired.
var ErrNotFound = errors.New("session value not found")

// DefaultLifetime is how long a session lives after its last write.
const DefaultLifetime = 12 * time.Hour

// Store is a session backend keyed by session ID.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string) error
}

// NewID returns a fresh random session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an ID produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Handle is one session bound to its backend.
type Handle struct {
	store Store
	id    string
}

var _ logon.Session = (*Handle)(nil)

// Bind returns the session id backed by store.
func Bind(store Store, id string) *Handle {
	return &Handle{store: store, id: id}
}

// ID returns the session ID.
func (h *Handle) ID() string { return h.id }

// Get implements logon.Session.
func (h *Handle) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := h.store.Get(ctx, h.id, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements logon.Session.
func (h *Handle) Set(ctx context.Context, key, value string) error {
	return h.store.Set(ctx, h.id, key, value)
}
