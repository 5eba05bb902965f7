package cache

import (
	"context"
	"sync"
	"time"

	"yqhp/analysis-engine/pkg/types"
)

// MemoryStore is a TTL-only, unbounded in-memory tier. It serves as the
// archive tier in single-process deployments and as a stand-in for any
// external store in tests. Expired entries are dropped lazily on read.
type MemoryStore struct {
	name types.CacheTier

	mu      sync.RWMutex
	entries map[string]storeEntry
}

type storeEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty store reporting the given tier name.
func NewMemoryStore(name types.CacheTier) *MemoryStore {
	return &MemoryStore{
		name:    name,
		entries: make(map[string]storeEntry),
	}
}

// Name implements Tier.
func (s *MemoryStore) Name() types.CacheTier {
	return s.name
}

// Get implements Tier.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		// re-check under write lock, a Set may have raced the expiry
		if cur, ok := s.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Tier.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = storeEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete implements Tier.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
