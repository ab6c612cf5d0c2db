// Package memory is a process-local storage.Storage.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/storage"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

type entry struct {
	session types.AuthSession
	until   time.Time
}

// Memory keeps sessions in a map guarded by a mutex.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]entry
	now      func() time.Time
}

// New returns an empty store.
func New() *Memory {
	return &Memory{sessions: make(map[string]entry), now: time.Now}
}

// SaveSession stores the session under its SessionID, replacing any
// previous entry. It is forgotten once ttl has passed.
func (m *Memory) SaveSession(_ context.Context, session types.AuthSession, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.SessionID] = entry{session: session, until: m.now().Add(ttl)}
	return nil
}

// GetSession returns the live session for id. An expired entry is removed
// on the way and reported as storage.ErrNotFound.
func (m *Memory) GetSession(_ context.Context, id string) (types.AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return types.AuthSession{}, storage.ErrNotFound
	}
	if !m.now().Before(e.until) {
		delete(m.sessions, id)
		return types.AuthSession{}, storage.ErrNotFound
	}
	return e.session, nil
}

// DeleteSession removes id; a missing id is not an error.
func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Close is a no-op; there is nothing to release.
func (m *Memory) Close() error { return nil }
