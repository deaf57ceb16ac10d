package config

import "time"

const (
	envFile           = "ENV_FILE"
	envPort           = "PORT"
	envProvider       = "PROVIDER"
	envAdminToken     = "ADMIN_TOKEN"
	envLogLevel       = "LOG_LEVEL"
	envLogFormat      = "LOG_FORMAT"
	envMetricsPort    = "METRICS_PORT"
	envMetricsOn      = "METRICS_ENABLED"
	envOtelEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService    = "OTEL_SERVICE_NAME"
	envOtelInsecure   = "OTEL_EXPORTER_OTLP_INSECURE"
	envScoreboardPoll = "SCOREBOARD_POLL_INTERVAL"
	envEventsPoll     = "EVENTS_POLL_INTERVAL"
	envFetchTimeout   = "FETCH_TIMEOUT"
	envEventWorkers   = "EVENTS_CONCURRENCY"

	defaultEnvFile   = ".env"
	defaultPort      = "4000"
	defaultProvider  = "fixture"
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	// Scoreboard polling is spaced to respect upstream quotas (balldontlie free tier: 5 req/min).
	defaultScoreboardPoll = 15 * Duration(time.Second)
	defaultEventsPoll     = 5 * Duration(time.Second)
	defaultFetchTimeout   = 10 * Duration(time.Second)
	defaultEventWorkers   = 4
	defaultMetricsPort    = "9090"
)
