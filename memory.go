package budgetguard

import (
	"sync"
	"time"
)

// MemoryStore is an in-process LocalStore with per-key lazy expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time // injectable for tests
}

type memoryEntry struct {
	value     float64
	expiresAt time.Time // zero means no expiry
}

var _ LocalStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Get returns the value for key and whether it exists.
func (s *MemoryStore) Get(key string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.alive(key)
	if e == nil {
		return 0, false
	}
	return e.value, true
}

// BatchGet returns the values for all keys that exist.
func (s *MemoryStore) BatchGet(keys []string) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(keys))
	for _, key := range keys {
		if e := s.alive(key); e != nil {
			out[key] = e.value
		}
	}
	return out
}

// Set overwrites the value for key. A ttl <= 0 means no expiry.
func (s *MemoryStore) Set(key string, value float64, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &memoryEntry{value: value, expiresAt: s.deadline(ttl)}
}

// Increment atomically adds delta to key and returns the new value.
// A missing or expired key starts a fresh window at delta.
func (s *MemoryStore) Increment(key string, delta float64, ttl time.Duration) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.alive(key)
	if e == nil {
		e = &memoryEntry{expiresAt: s.deadline(ttl)}
		s.entries[key] = e
	}
	e.value += delta
	return e.value
}

// alive returns the entry for key if it exists and has not expired,
// dropping it otherwise. Must be called with the lock held.
func (s *MemoryStore) alive(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}
