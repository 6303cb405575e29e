// ABOUTME: In-process session backend
// ABOUTME: Suitable for a single gateway instance and for tests

package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in a map guarded by a mutex.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	lifetime time.Duration
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore whose sessions expire lifetime after
// their last write.
func NewMemoryStore(lifetime time.Duration) *MemoryStore {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		lifetime: lifetime,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.sessions, sessionID)
		return "", ErrNotFound
	}
	v, ok := e.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok || !m.now().Before(e.expiresAt) {
		e = &memoryEntry{values: make(map[string]string)}
		m.sessions[sessionID] = e
	}
	e.values[key] = value
	e.expiresAt = m.now().Add(m.lifetime)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Purge drops expired sessions and returns how many were removed.
func (m *MemoryStore) Purge(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
