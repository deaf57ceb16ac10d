package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
)

const (
	defaultBreakerFailures = 5
	defaultBreakerOpen     = 30 * time.Second
)

// BreakerConfig controls when the circuit opens and how long it stays open.
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures int
	OpenTimeout         time.Duration
}

// breakerProvider stops calling a failing upstream until the open timeout elapses.
type breakerProvider struct {
	next   DataProvider
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
	name   string
}

// NewBreakerProvider wraps next with a circuit breaker. While open, calls fail fast with ErrProviderUnavailable.
func NewBreakerProvider(next DataProvider, cfg BreakerConfig, logger *slog.Logger) DataProvider {
	if cfg.ConsecutiveFailures <= 0 {
		cfg.ConsecutiveFailures = defaultBreakerFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultBreakerOpen
	}
	if cfg.Name == "" {
		cfg.Name = fallbackProviderName
	}
	threshold := uint32(cfg.ConsecutiveFailures)

	bp := &breakerProvider{next: next, logger: logger, name: cfg.Name}
	bp.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logWithProvider(context.Background(), logger, slog.LevelWarn, name, "provider circuit state changed",
				"from", from.String(), "to", to.String())
		},
	})
	return bp
}

func (b *breakerProvider) FetchScoreboard(ctx context.Context) ([]games.Game, error) {
	return execute(b, func() ([]games.Game, error) { return b.next.FetchScoreboard(ctx) })
}

func (b *breakerProvider) FetchEvents(ctx context.Context, gameID string) ([]games.PlayEvent, error) {
	return execute(b, func() ([]games.PlayEvent, error) { return b.next.FetchEvents(ctx, gameID) })
}

func execute[T any](b *breakerProvider, fn func() (T, error)) (T, error) {
	var zero T
	if b.next == nil {
		return zero, ErrProviderUnavailable
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		if errors.Is(err, ErrGameNotFound) || errors.Is(err, context.Canceled) {
			// Not an upstream health signal.
			return breakerPassthrough{value: v, err: err}, nil
		}
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%s: %w: %v", b.name, ErrProviderUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	if pass, ok := out.(breakerPassthrough); ok {
		typed, _ := pass.value.(T)
		return typed, pass.err
	}
	typed, _ := out.(T)
	return typed, nil
}

type breakerPassthrough struct {
	value any
	err   error
}

// State reports the current breaker state.
func (b *breakerProvider) State() gobreaker.State {
	return b.cb.State()
}

// Close releases the wrapped provider when it holds resources.
func (b *breakerProvider) Close() error {
	return closeInner(b.next)
}
