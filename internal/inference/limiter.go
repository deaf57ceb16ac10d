package inference

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

const (
	defaultWindow = time.Minute
	defaultSafety = 0.85
)

// LimiterConfig sets the per-window ceilings. A non-positive ceiling disables that window.
type LimiterConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	Safety            float64
	Window            time.Duration
	Clock             clockwork.Clock
	Metrics           *metrics.Recorder
}

type stamp struct {
	id   uint64
	at   time.Time
	cost int
}

// Reservation identifies one recorded call so its token cost can be corrected later.
type Reservation struct {
	l  *Limiter
	id uint64
}

// Adjust replaces this call's token estimate with the cost the service reported.
// It is a no-op once the call has left the window.
func (r Reservation) Adjust(actualTokens int) {
	if r.l == nil || actualTokens < 0 {
		return
	}
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for i := range r.l.tokens {
		if r.l.tokens[i].id == r.id {
			r.l.tokens[i].cost = actualTokens
			return
		}
	}
}

// Limiter keeps two rolling windows, one counting requests and one counting tokens,
// and blocks callers that would push either past safety × ceiling.
type Limiter struct {
	mu       sync.Mutex
	seq      uint64
	requests []stamp
	tokens   []stamp
	reqLimit int
	tokLimit int
	window   time.Duration
	clock    clockwork.Clock
	recorder *metrics.Recorder
}

// NewLimiter builds a Limiter from cfg, applying defaults for safety, window and clock.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.Safety <= 0 || cfg.Safety > 1 {
		cfg.Safety = defaultSafety
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Limiter{
		reqLimit: scaledLimit(cfg.RequestsPerMinute, cfg.Safety),
		tokLimit: scaledLimit(cfg.TokensPerMinute, cfg.Safety),
		window:   cfg.Window,
		clock:    cfg.Clock,
		recorder: cfg.Metrics,
	}
}

func scaledLimit(ceiling int, safety float64) int {
	if ceiling <= 0 {
		return 0
	}
	limit := int(math.Floor(float64(ceiling) * safety))
	if limit < 1 {
		limit = 1
	}
	return limit
}

// Wait blocks until a call costing estTokens fits in both windows. It does not reserve capacity.
func (l *Limiter) Wait(ctx context.Context, estTokens int) error {
	_, err := l.wait(ctx, estTokens, false)
	return err
}

// Acquire waits like Wait and records the call in the same critical section,
// so concurrent callers cannot overshoot the ceiling together.
func (l *Limiter) Acquire(ctx context.Context, estTokens int) (Reservation, error) {
	return l.wait(ctx, estTokens, true)
}

// Record counts one issued call costing estTokens.
func (l *Limiter) Record(estTokens int) Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordLocked(estTokens)
}

// Adjust replaces the most recent token estimate with the cost the service reported.
// With concurrent callers the most recent entry may belong to another call; use
// the Reservation returned by Acquire or Record instead.
func (l *Limiter) Adjust(actualTokens int) {
	if actualTokens < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.tokens); n > 0 {
		l.tokens[n-1].cost = actualTokens
	}
}

// Usage returns the requests and tokens currently inside the window.
func (l *Limiter) Usage() (requests, tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.clock.Now())
	return len(l.requests), sumCost(l.tokens)
}

func (l *Limiter) wait(ctx context.Context, estTokens int, reserve bool) (Reservation, error) {
	started := l.clock.Now()
	waited := false
	defer func() {
		if waited {
			l.recorder.RecordLimiterWait(l.clock.Since(started))
		}
	}()

	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.pruneLocked(now)
		delay := l.delayLocked(now, estTokens)
		if delay <= 0 {
			var r Reservation
			if reserve {
				r = l.recordLocked(estTokens)
			}
			l.mu.Unlock()
			return r, nil
		}
		l.mu.Unlock()

		waited = true
		select {
		case <-ctx.Done():
			return Reservation{}, ctx.Err()
		case <-l.clock.After(delay):
		}
	}
}

// delayLocked returns how long until the oldest entries that block the call expire.
func (l *Limiter) delayLocked(now time.Time, estTokens int) time.Duration {
	var delay time.Duration
	if l.reqLimit > 0 && len(l.requests)+1 > l.reqLimit {
		excess := len(l.requests) + 1 - l.reqLimit
		delay = l.expiry(now, l.requests[excess-1])
	}
	if l.tokLimit > 0 && len(l.tokens) > 0 {
		need := sumCost(l.tokens) + estTokens - l.tokLimit
		for i := 0; need > 0 && i < len(l.tokens); i++ {
			need -= l.tokens[i].cost
			if need <= 0 || i == len(l.tokens)-1 {
				if d := l.expiry(now, l.tokens[i]); d > delay {
					delay = d
				}
			}
		}
	}
	return delay
}

func (l *Limiter) expiry(now time.Time, s stamp) time.Duration {
	d := s.at.Add(l.window).Sub(now)
	if d <= 0 {
		return time.Nanosecond
	}
	return d
}

func (l *Limiter) recordLocked(estTokens int) Reservation {
	now := l.clock.Now()
	l.seq++
	l.requests = append(l.requests, stamp{id: l.seq, at: now, cost: 1})
	if estTokens < 0 {
		estTokens = 0
	}
	l.tokens = append(l.tokens, stamp{id: l.seq, at: now, cost: estTokens})
	return Reservation{l: l, id: l.seq}
}

func (l *Limiter) pruneLocked(now time.Time) {
	l.requests = pruneStamps(l.requests, now, l.window)
	l.tokens = pruneStamps(l.tokens, now, l.window)
}

func pruneStamps(stamps []stamp, now time.Time, window time.Duration) []stamp {
	i := 0
	for i < len(stamps) && now.Sub(stamps[i].at) >= window {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

func sumCost(stamps []stamp) int {
	total := 0
	for _, s := range stamps {
		total += s.cost
	}
	return total
}
