package config

import "time"

const (
	envUpstreamInterval     = "UPSTREAM_MIN_INTERVAL"
	envUpstreamBurst        = "UPSTREAM_BURST"
	envUpstreamAttempts     = "UPSTREAM_RETRY_ATTEMPTS"
	envUpstreamBackoff      = "UPSTREAM_RETRY_BACKOFF"
	envBreakerFailures      = "UPSTREAM_BREAKER_FAILURES"
	envBreakerOpenTimeout   = "UPSTREAM_BREAKER_OPEN_TIMEOUT"
	envFixtureStep          = "FIXTURE_STEP"
	defaultUpstreamBurst    = 2
	defaultUpstreamAttempts = 3
	defaultBreakerFailures  = 5
)

const (
	defaultUpstreamInterval = 500 * Duration(time.Millisecond)
	defaultUpstreamBackoff  = 200 * Duration(time.Millisecond)
	defaultBreakerTimeout   = 30 * Duration(time.Second)
	defaultFixtureStep      = 3 * Duration(time.Second)
)

// UpstreamConfig tunes the wrappers around every data provider call.
type UpstreamConfig struct {
	MinInterval        Duration
	Burst              int
	RetryAttempts      int
	RetryBackoff       Duration
	BreakerFailures    int
	BreakerOpenTimeout Duration
	FixtureStep        Duration
}

func loadUpstream() UpstreamConfig {
	return UpstreamConfig{
		MinInterval:        durationEnvOrDefault(envUpstreamInterval, defaultUpstreamInterval),
		Burst:              intEnvOrDefault(envUpstreamBurst, defaultUpstreamBurst),
		RetryAttempts:      intEnvOrDefault(envUpstreamAttempts, defaultUpstreamAttempts),
		RetryBackoff:       durationEnvOrDefault(envUpstreamBackoff, defaultUpstreamBackoff),
		BreakerFailures:    intEnvOrDefault(envBreakerFailures, defaultBreakerFailures),
		BreakerOpenTimeout: durationEnvOrDefault(envBreakerOpenTimeout, defaultBreakerTimeout),
		FixtureStep:        durationEnvOrDefault(envFixtureStep, defaultFixtureStep),
	}
}
