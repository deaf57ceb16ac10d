package server

import (
	"log/slog"

	"github.com/preston-bernstein/nba-live-service/internal/config"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
)

// providerFactory assembles the provider with the shared wrappers.
// Each retry attempt is paced by the limiter, and the breaker sits closest to the upstream.
type providerFactory struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newProviderFactory(logger *slog.Logger, metrics *metrics.Recorder) providerFactory {
	return providerFactory{logger: logger, metrics: metrics}
}

func (f providerFactory) build(cfg config.Config) providers.DataProvider {
	base := selectProvider(cfg, f.logger)
	name := normalizeProviderName(cfg.Provider, base)
	guarded := providers.NewBreakerProvider(base, providers.BreakerConfig{
		Name:                name,
		ConsecutiveFailures: cfg.Upstream.BreakerFailures,
		OpenTimeout:         cfg.Upstream.BreakerOpenTimeout,
	}, f.logger)
	limited := providers.NewRateLimitedProvider(guarded, cfg.Upstream.MinInterval, cfg.Upstream.Burst, f.logger)
	return providers.NewRetryingProvider(limited, f.logger, f.metrics, name, cfg.Upstream.RetryAttempts, cfg.Upstream.RetryBackoff)
}
