// Package cache provides the bounded, TTL-based result stores the facade
// and aggregator sit on top of: one store each for search results, item
// details, and recommendation pools. Eviction is oldest-first by insertion
// time, not LRU; reads never refresh an entry's eviction priority.
package cache

import (
	"sync"
	"time"
)

// entry is one cached value. Entries are never mutated in place; a Set on
// an existing key replaces the entry wholesale.
type entry[T any] struct {
	value      T
	insertedAt time.Time
	ttl        time.Duration
	seq        uint64
}

// StoreStats is a point-in-time snapshot of one store's counters.
type StoreStats struct {
	Entries    int           `json:"entries"`
	MaxEntries int           `json:"maxEntries"`
	TTL        time.Duration `json:"ttl"`
	Hits       uint64        `json:"hits"`
	Misses     uint64        `json:"misses"`
	Evictions  uint64        `json:"evictions"`
}

// Store is a size-capped TTL map. Safe for concurrent use.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	maxSize int
	ttl     time.Duration
	seq     uint64

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

// NewStore creates a store holding at most maxSize entries, each live for
// ttl after insertion.
func NewStore[T any](maxSize int, ttl time.Duration) *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value for key. An expired entry is deleted, not just
// ignored, and reported as a miss.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		var zero T
		return zero, false
	}

	if s.now().Sub(e.insertedAt) > e.ttl {
		delete(s.entries, key)
		s.misses++
		var zero T
		return zero, false
	}

	s.hits++
	return e.value, true
}

// Set inserts value under key with the store's default TTL.
func (s *Store[T]) Set(key string, value T) {
	s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL inserts value under key with an explicit TTL. Before
// inserting, all expired entries are purged; if the store would still
// exceed its cap, the oldest-inserted entries are evicted until it fits.
func (s *Store[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.insertedAt) > e.ttl {
			delete(s.entries, k)
		}
	}

	if _, exists := s.entries[key]; !exists {
		for len(s.entries) >= s.maxSize {
			s.evictOldest()
		}
	}

	s.seq++
	s.entries[key] = entry[T]{
		value:      value,
		insertedAt: now,
		ttl:        ttl,
		seq:        s.seq,
	}
}

// Delete removes key if present.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Clear drops every entry.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[T])
}

// Len returns the number of entries, including any not yet purged expired
// ones.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store's counters.
func (s *Store[T]) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{
		Entries:    len(s.entries),
		MaxEntries: s.maxSize,
		TTL:        s.ttl,
		Hits:       s.hits,
		Misses:     s.misses,
		Evictions:  s.evictions,
	}
}

// evictOldest removes the entry with the lowest insertion sequence. Must be
// called with the lock held and a non-empty map.
func (s *Store[T]) evictOldest() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for k, e := range s.entries {
		if first || e.seq < oldestSeq {
			oldestKey, oldestSeq = k, e.seq
			first = false
		}
	}
	delete(s.entries, oldestKey)
	s.evictions++
}
