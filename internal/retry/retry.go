// Package retry wraps external calls in an explicit, bounded retry policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultAttempts   = 3
	defaultInitial    = 200 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second
	defaultMultiplier = 2.0
	defaultJitter     = 0.5
)

// Hinter is implemented by errors that carry a server-suggested delay (Retry-After).
type Hinter interface {
	RetryAfterHint() time.Duration
}

// Policy describes how many times a call is attempted and how long to wait in between.
// The zero value retries three times with jittered exponential backoff.
type Policy struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
	// NoJitter forces RandomizationFactor to zero, which a zero value cannot express.
	NoJitter bool
	// MaxRetryAfter caps server hints; zero leaves them uncapped.
	MaxRetryAfter time.Duration
	// RetryIf limits retries to matching errors. Nil retries every non-permanent error.
	RetryIf func(error) bool
	OnRetry func(attempt int, delay time.Duration, err error)
	Sleep   func(ctx context.Context, d time.Duration) error
}

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts run out,
// or ctx is done.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	schedule := p.Schedule()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == p.MaxAttempts || !p.retryable(err) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		delay := p.NextDelay(schedule, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if sleepErr := p.Sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}
	return zero, unwrapPermanent(lastErr)
}

// Schedule returns a fresh exponential backoff built from the policy.
func (p Policy) Schedule() backoff.BackOff {
	p = p.withDefaults()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// NextDelay prefers a server hint carried by err and falls back to the schedule.
func (p Policy) NextDelay(schedule backoff.BackOff, err error) time.Duration {
	if hint, ok := RetryAfter(err); ok {
		if p.MaxRetryAfter > 0 && hint > p.MaxRetryAfter {
			return p.MaxRetryAfter
		}
		return hint
	}
	d := schedule.NextBackOff()
	if d == backoff.Stop || d < 0 {
		return p.MaxInterval
	}
	return d
}

// RetryAfter extracts a positive server hint from err.
func RetryAfter(err error) (time.Duration, bool) {
	var h Hinter
	if errors.As(err, &h) {
		if d := h.RetryAfterHint(); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func (p Policy) retryable(err error) bool {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) || errors.Is(err, context.Canceled) {
		return false
	}
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return true
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = defaultInitial
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = defaultMaxBackoff
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaultMultiplier
	}
	if p.NoJitter {
		p.RandomizationFactor = 0
	} else if p.RandomizationFactor <= 0 || p.RandomizationFactor >= 1 {
		p.RandomizationFactor = defaultJitter
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
