package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, capacity int, ttl time.Duration) (*Store[string, int], *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return New[string, int](capacity, ttl, WithClock[string, int](clock)), clock
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(t, 2, time.Minute)

	s.Set("a", 1)
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsedNotOldestInserted(t *testing.T) {
	var evicted []string
	clock := clockwork.NewFakeClock()
	s := New[string, int](2, 0,
		WithClock[string, int](clock),
		WithEvictionHook[string, int](func(key string, reason EvictReason) {
			assert.Equal(t, EvictCapacity, reason)
			evicted = append(evicted, key)
		}),
	)

	s.Set("a", 1)
	s.Set("b", 2)
	_, ok := s.Get("a") // a becomes most recently used
	require.True(t, ok)

	s.Set("c", 3)

	_, ok = s.Get("b")
	assert.False(t, ok, "b was least recently used and should be evicted")
	_, ok = s.Get("a")
	assert.True(t, ok, "a was recently read and should survive")
	_, ok = s.Get("c")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, s.Len())
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	s, _ := newTestStore(t, 2, 0)
	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 10)

	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, got)
	_, ok = s.Get("b")
	assert.True(t, ok)
}

func TestExpiredEntryReportedAbsent(t *testing.T) {
	var reasons []EvictReason
	clock := clockwork.NewFakeClock()
	s := New[string, int](4, 10*time.Second,
		WithClock[string, int](clock),
		WithEvictionHook[string, int](func(_ string, reason EvictReason) { reasons = append(reasons, reason) }),
	)
	s.Set("a", 1)

	clock.Advance(10 * time.Second)
	_, ok := s.Get("a")
	assert.True(t, ok, "entry exactly at TTL is still fresh")

	clock.Advance(time.Millisecond)
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "expired entry is dropped on read")
	assert.Equal(t, []EvictReason{EvictExpired}, reasons)
}

func TestReadDoesNotRefreshTTL(t *testing.T) {
	s, clock := newTestStore(t, 4, 10*time.Second)
	s.Set("a", 1)

	clock.Advance(6 * time.Second)
	_, ok := s.Get("a")
	require.True(t, ok)

	clock.Advance(6 * time.Second)
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestSweepOlderThanIgnoresRecency(t *testing.T) {
	s, clock := newTestStore(t, 4, 0)
	s.Set("old", 1)
	clock.Advance(time.Minute)
	s.Set("new", 2)
	_, _ = s.Get("old") // recently used but still old

	removed := s.SweepOlderThan(30 * time.Second)
	assert.Equal(t, 1, removed)
	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("new")
	assert.True(t, ok)
}

func TestRemove(t *testing.T) {
	s, _ := newTestStore(t, 4, 0)
	s.Set("a", 1)
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestUpdateIsAtomicAndRefreshesEntry(t *testing.T) {
	s, clock := newTestStore(t, 4, 10*time.Second)

	got := s.Update("n", func(current int, ok bool) int {
		assert.False(t, ok)
		return current + 1
	})
	assert.Equal(t, 1, got)

	clock.Advance(8 * time.Second)
	s.Update("n", func(current int, ok bool) int {
		assert.True(t, ok)
		return current + 1
	})
	clock.Advance(8 * time.Second)

	v, ok := s.Get("n")
	require.True(t, ok, "update resets freshness")
	assert.Equal(t, 2, v)
}

func TestUpdateEvictsWhenFull(t *testing.T) {
	s, _ := newTestStore(t, 1, 0)
	s.Set("a", 1)
	s.Update("b", func(int, bool) int { return 2 })
	assert.Equal(t, []string{"b"}, s.Keys())
}

func TestKeysOrderedLeastToMostRecent(t *testing.T) {
	s, _ := newTestStore(t, 4, 0)
	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("c", 3)
	_, _ = s.Get("a")
	assert.Equal(t, []string{"b", "c", "a"}, s.Keys())
}

func TestPeekDoesNotPromote(t *testing.T) {
	s, _ := newTestStore(t, 2, 0)
	s.Set("a", 1)
	s.Set("b", 2)
	entry, ok := s.Peek("a")
	require.True(t, ok)
	assert.Equal(t, "a", entry.Key)

	s.Set("c", 3)
	_, ok = s.Get("a")
	assert.False(t, ok, "peek must not change recency")
}

func TestAccessHookCountsHitsAndMisses(t *testing.T) {
	var hits, misses int
	s := New[string, int](2, 0, WithAccessHook[string, int](func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))
	s.Set("a", 1)
	_, _ = s.Get("a")
	_, _ = s.Get("b")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestDefaultsForInvalidArguments(t *testing.T) {
	s := New[string, int](0, -time.Second)
	assert.Equal(t, defaultCapacity, s.capacity())
	assert.Equal(t, time.Duration(0), s.TTL())
	s.Purge()
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentAccessNeverExceedsCapacity(t *testing.T) {
	s := New[int, int](16, time.Minute)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.Set(offset*1000+i, i)
				_, _ = s.Get(offset*1000 + i/2)
				if i%50 == 0 {
					s.SweepOlderThan(time.Hour)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 16)
}
