package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
	"github.com/preston-bernstein/nba-live-service/internal/retry"
)

const (
	defaultRetryAttempts = 3
	defaultBackoff       = 200 * time.Millisecond
	defaultMaxRetryAfter = 30 * time.Second
	fallbackProviderName = "provider"
)

// retryingProvider wraps a DataProvider with a retry policy and records every attempt.
type retryingProvider struct {
	inner        DataProvider
	logger       *slog.Logger
	metrics      *metrics.Recorder
	providerName string
	policy       retry.Policy
}

// NewRetryingProvider wraps the given provider with retries. If maxAttempts/backoff are <= 0, defaults are used.
// Rate limit responses wait for the upstream Retry-After instead of the backoff schedule.
func NewRetryingProvider(inner DataProvider, logger *slog.Logger, recorder *metrics.Recorder, providerName string, maxAttempts int, backoff time.Duration) DataProvider {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	if providerName == "" {
		providerName = fallbackProviderName
	}
	rp := &retryingProvider{
		inner:        inner,
		logger:       logger,
		metrics:      recorder,
		providerName: providerName,
	}
	rp.policy = retry.Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: backoff,
		MaxInterval:     backoff * 8,
		MaxRetryAfter:   defaultMaxRetryAfter,
		RetryIf: func(err error) bool {
			return !errors.Is(err, ErrGameNotFound)
		},
	}
	return rp
}

func (r *retryingProvider) FetchScoreboard(ctx context.Context) ([]games.Game, error) {
	return attempt(ctx, r, "scoreboard", func(ctx context.Context) ([]games.Game, error) {
		return r.inner.FetchScoreboard(ctx)
	})
}

func (r *retryingProvider) FetchEvents(ctx context.Context, gameID string) ([]games.PlayEvent, error) {
	return attempt(ctx, r, "events", func(ctx context.Context) ([]games.PlayEvent, error) {
		return r.inner.FetchEvents(ctx, gameID)
	})
}

func attempt[T any](ctx context.Context, r *retryingProvider, op string, fn func(context.Context) (T, error)) (T, error) {
	if r.inner == nil {
		var zero T
		return zero, ErrProviderUnavailable
	}

	policy := r.policy
	policy.OnRetry = func(n int, delay time.Duration, err error) {
		logWithProvider(ctx, r.logger, slog.LevelWarn, r.providerName, "provider fetch retry",
			"op", op, "attempt", n, "max_attempts", policy.MaxAttempts, "delay", delay, "err", err)
	}

	out, err := retry.Do(ctx, policy, func(ctx context.Context) (T, error) {
		start := time.Now()
		v, err := fn(ctx)
		r.metrics.RecordProviderAttempt(r.providerName, time.Since(start), err)
		if rlErr, ok := AsRateLimitError(err); ok {
			r.metrics.RecordRateLimit(r.providerName, rlErr.RetryAfter)
		}
		return v, err
	})
	if err != nil && ctx.Err() == nil {
		logWithProvider(ctx, r.logger, slog.LevelWarn, r.providerName, "provider fetch failed",
			"op", op, "attempts", policy.MaxAttempts, "err", err)
	}
	return out, err
}

// Close releases the wrapped provider when it holds resources.
func (r *retryingProvider) Close() error {
	return closeInner(r.inner)
}
