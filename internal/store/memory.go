package store

import (
	"context"
	"sync"
	"time"

	"github.com/ardato/secure-notes/internal/model"
)

type memoryEntry struct {
	principal model.Principal
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-process TokenStore. It backs tests
// and local development without Redis. Expired entries are dropped lazily
// on read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) SaveRefreshToken(_ context.Context, token string, p model.Principal, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{principal: p, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) FindRefreshToken(_ context.Context, token string) (model.Principal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(token)
	if !ok {
		return model.Principal{}, false, nil
	}
	return e.principal, true, nil
}

func (s *MemoryStore) ConsumeRefreshToken(_ context.Context, token string) (model.Principal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(token)
	if !ok {
		return model.Principal{}, false, nil
	}
	delete(s.entries, token)
	return e.principal, true, nil
}

func (s *MemoryStore) InvalidateRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

func (s *MemoryStore) MarkAccessTokenRevoked(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[revokedPrefix+token] = memoryEntry{expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) IsAccessTokenRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(revokedPrefix + token)
	return ok, nil
}

// live returns the entry for key if it has not expired, dropping it
// otherwise. Caller must hold mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
