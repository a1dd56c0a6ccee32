package tokenstore

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// FileStore persists tokens in a JSON file. Every mutation rewrites
// the file atomically; reads are served from the in-memory copy.
type FileStore struct {
	mu     sync.Mutex
	path   string
	tokens map[string]*Token
}

// NewFileStore opens (or creates) the token file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, tokens: make(map[string]*Token)}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &s.tokens); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = &Token{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return s.flush()
}

func (s *FileStore) Get(_ context.Context, key string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[key]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if tok.IsExpired() {
		return nil, ErrTokenExpired
	}
	return tok, nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[key]; !ok {
		return nil
	}
	delete(s.tokens, key)
	return s.flush()
}

func (s *FileStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for k, tok := range s.tokens {
		if tok.IsExpired() {
			delete(s.tokens, k)
			count++
		}
	}
	if count > 0 {
		if err := s.flush(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// flush writes the token map to disk. Caller must hold the lock.
func (s *FileStore) flush() error {
	b, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
