package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.  It backs tests and
// single-run CLI flows where reload recovery is not needed.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Load returns the stored session or nil when the key is absent.
func (ms *MemoryStore) Load(_ context.Context, key string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.sessions[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Save stores a copy of the session under key.
func (ms *MemoryStore) Save(_ context.Context, key string, s Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[key] = s
	return nil
}

// Clear removes the session under key.
func (ms *MemoryStore) Clear(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, key)
	return nil
}
