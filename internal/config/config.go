package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the server.
type Config struct {
	Port        string
	Provider    string
	AdminToken  string
	Log         LogConfig
	Polling     PollingConfig
	Upstream    UpstreamConfig
	Balldontlie BalldontlieConfig
	Cache       CacheConfig
	Fanout      FanoutConfig
	Moments     MomentsConfig
	Inference   InferenceConfig
	Metrics     MetricsConfig
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string
	Format string
}

// PollingConfig controls the upstream pollers.
type PollingConfig struct {
	ScoreboardInterval Duration
	EventsInterval     Duration
	FetchTimeout       Duration
	EventConcurrency   int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file (or the file named by ENV_FILE) is loaded first when present;
// variables already set in the environment win.
func Load() Config {
	_ = loadDotEnv(envOrDefault(envFile, defaultEnvFile))

	return Config{
		Port:     envOrDefault(envPort, defaultPort),
		Provider: envOrDefault(envProvider, defaultProvider),
		// Empty disables the admin endpoints.
		AdminToken: os.Getenv(envAdminToken),
		Log: LogConfig{
			Level:  envOrDefault(envLogLevel, defaultLogLevel),
			Format: envOrDefault(envLogFormat, defaultLogFormat),
		},
		Polling: PollingConfig{
			ScoreboardInterval: durationEnvOrDefault(envScoreboardPoll, defaultScoreboardPoll),
			EventsInterval:     durationEnvOrDefault(envEventsPoll, defaultEventsPoll),
			FetchTimeout:       durationEnvOrDefault(envFetchTimeout, defaultFetchTimeout),
			EventConcurrency:   intEnvOrDefault(envEventWorkers, defaultEventWorkers),
		},
		Upstream:    loadUpstream(),
		Balldontlie: loadBalldontlie(),
		Cache:       loadCache(),
		Fanout:      loadFanout(),
		Moments:     loadMoments(),
		Inference:   loadInference(),
		Metrics:     loadMetrics(),
	}
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
		return nil
	}
	return err
}
