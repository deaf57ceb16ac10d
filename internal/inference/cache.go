package inference

import (
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/preston-bernstein/nba-live-service/internal/cache"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

const (
	defaultCacheTTL     = 10 * time.Minute
	defaultCacheEntries = 256
	responseCacheName   = "inference"
)

// ResponseCache maps batch fingerprints to parsed explanations. Reads never promote
// an entry, so capacity eviction drops the oldest insert first. Concurrent misses for
// the same fingerprint share one load.
type ResponseCache struct {
	store *cache.Store[string, []Explanation]
	group singleflight.Group
}

// NewResponseCache bounds the cache by ttl and maxEntries; non-positive values use defaults.
func NewResponseCache(ttl time.Duration, maxEntries int, clock clockwork.Clock, recorder *metrics.Recorder) *ResponseCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &ResponseCache{
		store: cache.New[string, []Explanation](maxEntries, ttl,
			cache.WithClock[string, []Explanation](clock),
			cache.WithEvictionHook[string, []Explanation](func(_ string, reason cache.EvictReason) {
				recorder.RecordCacheEviction(responseCacheName, string(reason))
			}),
		),
	}
}

// Get returns the cached explanations for key.
func (c *ResponseCache) Get(key string) ([]Explanation, bool) {
	entry, ok := c.store.Peek(key)
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// Put stores explanations under key.
func (c *ResponseCache) Put(key string, value []Explanation) {
	c.store.Set(key, value)
}

// Len returns the number of stored fingerprints.
func (c *ResponseCache) Len() int {
	return c.store.Len()
}

// Sweep drops entries past the TTL.
func (c *ResponseCache) Sweep() int {
	return c.store.SweepOlderThan(c.store.TTL())
}

// Do returns the cached value for key or runs load once across concurrent callers.
// Successful non-empty loads are cached.
func (c *ResponseCache) Do(key string, load func() ([]Explanation, error)) ([]Explanation, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if cached, ok := c.Get(key); ok {
			return cached, nil
		}
		out, err := load()
		if err != nil {
			return nil, err
		}
		if len(out) > 0 {
			c.Put(key, out)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Explanation), nil
}
