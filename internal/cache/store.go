// Package cache provides a bounded, TTL-aware key/value store with LRU eviction.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jonboulle/clockwork"
)

const defaultCapacity = 256

// EvictReason explains why an entry left the store without an explicit Remove.
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity"
	EvictExpired  EvictReason = "expired"
	EvictSwept    EvictReason = "swept"
)

// Entry is a stored value with its bookkeeping timestamps.
type Entry[K comparable, V any] struct {
	Key        K
	Value      V
	StoredAt   time.Time
	AccessedAt time.Time
}

// Store is a goroutine-safe LRU with a per-store TTL. A zero TTL disables expiry.
// No method panics or returns an error; absence is reported as (zero, false).
type Store[K comparable, V any] struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[K, *Entry[K, V]]
	size    int
	ttl     time.Duration
	clock   clockwork.Clock
	onEvict func(key K, reason EvictReason)
	onHit   func(hit bool)
}

// Option customizes a Store.
type Option[K comparable, V any] func(*Store[K, V])

// WithClock overrides the time source (tests use clockwork.NewFakeClock()).
func WithClock[K comparable, V any](clock clockwork.Clock) Option[K, V] {
	return func(s *Store[K, V]) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithEvictionHook registers a callback fired for capacity, expiry and sweep evictions.
// The hook runs while the store lock is held and must not call back into the store.
func WithEvictionHook[K comparable, V any](fn func(key K, reason EvictReason)) Option[K, V] {
	return func(s *Store[K, V]) {
		s.onEvict = fn
	}
}

// WithAccessHook registers a callback fired on every Get with the hit/miss outcome.
func WithAccessHook[K comparable, V any](fn func(hit bool)) Option[K, V] {
	return func(s *Store[K, V]) {
		s.onHit = fn
	}
}

// New constructs a Store holding at most capacity entries. Non-positive capacity uses a default.
func New[K comparable, V any](capacity int, ttl time.Duration, opts ...Option[K, V]) *Store[K, V] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if ttl < 0 {
		ttl = 0
	}
	// simplelru only rejects non-positive sizes, which are normalized above.
	lru, _ := simplelru.NewLRU[K, *Entry[K, V]](capacity, nil)
	s := &Store[K, V]{
		lru:   lru,
		size:  capacity,
		ttl:   ttl,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value for key and marks it most recently used.
// Entries older than the TTL are removed and reported absent.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	entry, ok := s.lru.Get(key)
	if !ok {
		s.recordAccess(false)
		return zero, false
	}
	now := s.clock.Now()
	if s.expired(entry, now) {
		s.lru.Remove(key)
		s.notifyEvict(key, EvictExpired)
		s.recordAccess(false)
		return zero, false
	}
	entry.AccessedAt = now
	s.recordAccess(true)
	return entry.Value, true
}

// Peek returns the entry without touching recency. Expired entries are reported absent.
func (s *Store[K, V]) Peek(key K) (Entry[K, V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lru.Peek(key)
	if !ok || s.expired(entry, s.clock.Now()) {
		return Entry[K, V]{}, false
	}
	return *entry, true
}

// Set stores value under key, marks it most recently used, and evicts the
// least recently used key when capacity would be exceeded.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if !s.lru.Contains(key) && s.lru.Len() >= s.capacity() {
		if oldKey, _, ok := s.lru.RemoveOldest(); ok {
			s.notifyEvict(oldKey, EvictCapacity)
		}
	}
	s.lru.Add(key, &Entry[K, V]{Key: key, Value: value, StoredAt: now, AccessedAt: now})
}

// Update applies fn to the current value (zero value and false when absent or expired)
// and stores the result atomically.
func (s *Store[K, V]) Update(key K, fn func(current V, ok bool) V) V {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var current V
	entry, ok := s.lru.Get(key)
	if ok && s.expired(entry, now) {
		s.lru.Remove(key)
		s.notifyEvict(key, EvictExpired)
		ok = false
	}
	if ok {
		current = entry.Value
	}
	next := fn(current, ok)
	if !ok && s.lru.Len() >= s.capacity() {
		if oldKey, _, evicted := s.lru.RemoveOldest(); evicted {
			s.notifyEvict(oldKey, EvictCapacity)
		}
	}
	s.lru.Add(key, &Entry[K, V]{Key: key, Value: next, StoredAt: now, AccessedAt: now})
	return next
}

// Remove deletes key and reports whether it was present.
func (s *Store[K, V]) Remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Remove(key)
}

// SweepOlderThan removes every entry stored more than maxAge ago regardless of recency.
func (s *Store[K, V]) SweepOlderThan(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for _, key := range s.lru.Keys() {
		entry, ok := s.lru.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(entry.StoredAt) > maxAge {
			s.lru.Remove(key)
			s.notifyEvict(key, EvictSwept)
			removed++
		}
	}
	return removed
}

// Keys returns live keys ordered from least to most recently used.
func (s *Store[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	keys := make([]K, 0, s.lru.Len())
	for _, key := range s.lru.Keys() {
		if entry, ok := s.lru.Peek(key); ok && !s.expired(entry, now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the number of stored entries, including ones not yet swept.
func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Purge drops every entry.
func (s *Store[K, V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
}

// TTL returns the configured time-to-live.
func (s *Store[K, V]) TTL() time.Duration {
	return s.ttl
}

func (s *Store[K, V]) capacity() int {
	return s.size
}

func (s *Store[K, V]) expired(entry *Entry[K, V], now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.StoredAt) > s.ttl
}

func (s *Store[K, V]) notifyEvict(key K, reason EvictReason) {
	if s.onEvict != nil {
		s.onEvict(key, reason)
	}
}

func (s *Store[K, V]) recordAccess(hit bool) {
	if s.onHit != nil {
		s.onHit(hit)
	}
}
