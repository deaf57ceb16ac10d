package metrics

import (
	"sync"
	"time"
)

type providerStats struct {
	calls           int
	errors          int
	rateLimitHits   int
	lastRetryAfter  time.Duration
	lastCallLatency time.Duration
}

type cacheStats struct {
	hits      int
	misses    int
	evictions int
}

// Recorder captures lightweight, in-memory metrics and forwards them to
// OpenTelemetry instruments when telemetry is enabled.
type Recorder struct {
	mu     sync.Mutex
	stats  map[string]*providerStats
	caches map[string]*cacheStats

	broadcasts      int
	sendFailures    int
	subscribers     int
	moments         map[string]int
	inferenceCalls  int
	inferenceErrors int
	limiterWaits    int

	otel *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats:   make(map[string]*providerStats),
		caches:  make(map[string]*cacheStats),
		moments: make(map[string]int),
		otel:    otel,
	}
}

// RecordProviderAttempt increments counters for a provider call and stores the last observed latency.
func (r *Recorder) RecordProviderAttempt(provider string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.ensureStats(provider)
	stats.calls++
	stats.lastCallLatency = duration
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordProviderAttempt(provider, duration, err)
	}
}

// RecordRateLimit tracks that a provider response hit a rate limit and stores the last Retry-After.
func (r *Recorder) RecordRateLimit(provider string, retryAfter time.Duration) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.ensureStats(provider)
	stats.rateLimitHits++
	if retryAfter > 0 {
		stats.lastRetryAfter = retryAfter
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordRateLimit(provider, retryAfter)
	}
}

// ProviderCalls returns the total attempts recorded for a provider.
func (r *Recorder) ProviderCalls(provider string) int {
	return r.Snapshot(provider).Calls
}

// ProviderErrors returns the total failed attempts recorded for a provider.
func (r *Recorder) ProviderErrors(provider string) int {
	return r.Snapshot(provider).Errors
}

// RateLimitHits returns the number of rate limit events seen for a provider.
func (r *Recorder) RateLimitHits(provider string) int {
	return r.Snapshot(provider).RateLimitHits
}

// LastRetryAfter returns the most recent Retry-After recorded for a provider.
func (r *Recorder) LastRetryAfter(provider string) time.Duration {
	return r.Snapshot(provider).LastRetryAfter
}

// Snapshot returns a copy of the current stats for the provider.
type Snapshot struct {
	Calls           int
	Errors          int
	RateLimitHits   int
	LastRetryAfter  time.Duration
	LastCallLatency time.Duration
}

func (r *Recorder) Snapshot(provider string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[provider]
	if !ok || stats == nil {
		return Snapshot{}
	}
	return Snapshot{
		Calls:           stats.calls,
		Errors:          stats.errors,
		RateLimitHits:   stats.rateLimitHits,
		LastRetryAfter:  stats.lastRetryAfter,
		LastCallLatency: stats.lastCallLatency,
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// RecordPollerCycle tracks poller cycles and errors for the named poller.
func (r *Recorder) RecordPollerCycle(poller string, duration time.Duration, err error) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordPoller(poller, duration, err)
}

// RecordCacheAccess counts a hit or miss against the named cache.
func (r *Recorder) RecordCacheAccess(cache string, hit bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	stats := r.ensureCache(cache)
	if hit {
		stats.hits++
	} else {
		stats.misses++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordCacheAccess(cache, hit)
	}
}

// RecordCacheEviction counts an eviction from the named cache.
func (r *Recorder) RecordCacheEviction(cache, reason string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.ensureCache(cache).evictions++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordCacheEviction(cache, reason)
	}
}

// CacheStats exposes in-memory counters for a cache.
type CacheStats struct {
	Hits      int
	Misses    int
	Evictions int
}

// Cache returns the counters recorded for the named cache.
func (r *Recorder) Cache(cache string) CacheStats {
	if r == nil {
		return CacheStats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.caches[cache]
	if !ok {
		return CacheStats{}
	}
	return CacheStats{Hits: stats.hits, Misses: stats.misses, Evictions: stats.evictions}
}

// RecordBroadcast tracks a fanout push to the given number of subscribers.
func (r *Recorder) RecordBroadcast(delivered, failed int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.broadcasts++
	r.sendFailures += failed
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordBroadcast(delivered, failed)
	}
}

// AddSubscribers adjusts the connected subscriber gauge by delta.
func (r *Recorder) AddSubscribers(delta int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.subscribers += delta
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.addSubscribers(delta)
	}
}

// RecordMoment counts a detected key moment by type.
func (r *Recorder) RecordMoment(kind string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.moments[kind]++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordMoment(kind)
	}
}

// RecordInferenceCall tracks one downstream text-generation call.
func (r *Recorder) RecordInferenceCall(batchSize int, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.inferenceCalls++
	if err != nil {
		r.inferenceErrors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordInference(batchSize, duration, err)
	}
}

// RecordLimiterWait tracks time spent blocked on the inference rate limiter.
func (r *Recorder) RecordLimiterWait(wait time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.limiterWaits++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordLimiterWait(wait)
	}
}

// Activity summarizes the non-provider counters.
type Activity struct {
	Broadcasts      int
	SendFailures    int
	Subscribers     int
	Moments         map[string]int
	InferenceCalls  int
	InferenceErrors int
	LimiterWaits    int
}

// Activity returns a copy of the fanout, moment and inference counters.
func (r *Recorder) Activity() Activity {
	if r == nil {
		return Activity{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moments := make(map[string]int, len(r.moments))
	for k, v := range r.moments {
		moments[k] = v
	}
	return Activity{
		Broadcasts:      r.broadcasts,
		SendFailures:    r.sendFailures,
		Subscribers:     r.subscribers,
		Moments:         moments,
		InferenceCalls:  r.inferenceCalls,
		InferenceErrors: r.inferenceErrors,
		LimiterWaits:    r.limiterWaits,
	}
}

// ensureStats and ensureCache expect r.mu to be held.
func (r *Recorder) ensureStats(provider string) *providerStats {
	stats, ok := r.stats[provider]
	if !ok {
		stats = &providerStats{}
		r.stats[provider] = stats
	}
	return stats
}

func (r *Recorder) ensureCache(cache string) *cacheStats {
	stats, ok := r.caches[cache]
	if !ok {
		stats = &cacheStats{}
		r.caches[cache] = stats
	}
	return stats
}
