package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"yqhp/analysis-engine/pkg/types"
)

// DefaultMemoryCapacity 内存层默认容量
const DefaultMemoryCapacity = 1024

// memoryEntry is one LRU cell.
type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryTier is the in-process tier: a size-bounded LRU with a per-entry
// TTL checked on read. Expired entries are dropped lazily, there is no
// janitor goroutine.
type MemoryTier struct {
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
}

// NewMemoryTier creates a memory tier holding at most capacity entries.
func NewMemoryTier(capacity int) *MemoryTier {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryTier{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Name implements Tier.
func (t *MemoryTier) Name() types.CacheTier {
	return types.CacheTierMemory
}

// Get implements Tier. A hit moves the entry to the front of the LRU.
func (t *MemoryTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.entries[key]
	if !ok {
		return nil, false, nil
	}

	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		t.removeLocked(elem)
		return nil, false, nil
	}

	t.lru.MoveToFront(elem)
	return entry.value, true, nil
}

// Set implements Tier. Inserting beyond capacity evicts the least
// recently used entry.
func (t *MemoryTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	expiresAt := time.Now().Add(ttl)

	if elem, ok := t.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		t.lru.MoveToFront(elem)
		return nil
	}

	elem := t.lru.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	t.entries[key] = elem

	for t.lru.Len() > t.capacity {
		t.removeLocked(t.lru.Back())
	}
	return nil
}

// Delete implements Tier.
func (t *MemoryTier) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.entries[key]; ok {
		t.removeLocked(elem)
	}
	return nil
}

// Len returns the current number of entries, expired ones included.
func (t *MemoryTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lru.Len()
}

func (t *MemoryTier) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry)
	delete(t.entries, entry.key)
	t.lru.Remove(elem)
}
