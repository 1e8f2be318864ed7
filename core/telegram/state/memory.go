package state

import "sync"

// Memory is a mutex-guarded in-memory session store keyed by Telegram user id.
// Each Get/Set/Delete is atomic on its own; sequences of calls are not.
type Memory[S any] struct {
	mu       sync.RWMutex
	sessions map[int64]S
}

// NewMemory constructs an empty store.
func NewMemory[S any]() *Memory[S] {
	return &Memory[S]{sessions: make(map[int64]S)}
}

// Get returns the session of userID if one exists.
func (m *Memory[S]) Get(userID int64) (S, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Set creates or replaces the session of userID.
func (m *Memory[S]) Set(userID int64, s S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

// Delete removes the session of userID.
func (m *Memory[S]) Delete(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// InProgress reports whether userID has an open session.
func (m *Memory[S]) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[userID]
	return ok
}
