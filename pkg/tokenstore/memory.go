package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tokens in process memory. Suits tests and
// deployments that accept re-login after a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Token
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Token)}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Token{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Get returns a copy of the stored token; callers never share state
// with the map. An expired entry is removed on the way out.
func (m *MemoryStore) Get(_ context.Context, key string) (*Token, error) {
	m.mu.RLock()
	tok, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrTokenNotFound
	}
	if tok.IsExpired() {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrTokenExpired
	}
	return &tok, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, tok := range m.entries {
		if tok.IsExpired() {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}
