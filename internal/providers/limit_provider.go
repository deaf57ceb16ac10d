package providers

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
)

const rateLimitedName = "rate-limited"

// rateLimitedProvider wraps a DataProvider and paces calls through a token bucket.
type rateLimitedProvider struct {
	next    DataProvider
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimitedProvider returns a DataProvider that allows one call per interval with the given burst.
// Calls block until a token is available to avoid exceeding upstream quotas.
func NewRateLimitedProvider(next DataProvider, interval time.Duration, burst int, logger *slog.Logger) DataProvider {
	if interval <= 0 {
		interval = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		logger:  logger,
	}
}

func (p *rateLimitedProvider) FetchScoreboard(ctx context.Context) ([]games.Game, error) {
	if err := p.wait(ctx, "scoreboard"); err != nil {
		return nil, err
	}
	return p.next.FetchScoreboard(ctx)
}

func (p *rateLimitedProvider) FetchEvents(ctx context.Context, gameID string) ([]games.PlayEvent, error) {
	if err := p.wait(ctx, "events"); err != nil {
		return nil, err
	}
	return p.next.FetchEvents(ctx, gameID)
}

func (p *rateLimitedProvider) wait(ctx context.Context, op string) error {
	if p == nil || p.next == nil {
		if p != nil {
			logWithProvider(ctx, p.logger, slog.LevelWarn, rateLimitedName, "provider unavailable")
		}
		return ErrProviderUnavailable
	}
	if err := p.limiter.Wait(ctx); err != nil {
		logWithProvider(ctx, p.logger, slog.LevelWarn, rateLimitedName, "rate-limited fetch canceled", "op", op)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	logWithProvider(ctx, p.logger, slog.LevelDebug, rateLimitedName, "rate-limited provider fetch", "op", op)
	return nil
}

// Close releases the wrapped provider when it holds resources.
func (p *rateLimitedProvider) Close() error {
	return closeInner(p.next)
}
