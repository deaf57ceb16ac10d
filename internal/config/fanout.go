package config

import "time"

const (
	envFanoutInterval    = "FANOUT_INTERVAL"
	envFanoutDebounce    = "FANOUT_DEBOUNCE"
	envFanoutSendTimeout = "FANOUT_SEND_TIMEOUT"
	envRedisURL          = "REDIS_URL"
	envRedisChannel      = "REDIS_CHANNEL"
	envMomentsInterval   = "MOMENTS_INTERVAL"
	envMomentsRetention  = "MOMENTS_RETENTION"

	defaultRedisChannel = "nba:live"
)

const (
	defaultFanoutInterval    = Duration(time.Second)
	defaultFanoutDebounce    = 2 * Duration(time.Second)
	defaultFanoutSendTimeout = 5 * Duration(time.Second)
	defaultMomentsInterval   = 2 * Duration(time.Second)
	defaultMomentsRetention  = 5 * Duration(time.Minute)
)

// FanoutConfig controls change broadcasting. An empty RedisURL disables the relay.
type FanoutConfig struct {
	Interval     Duration
	Debounce     Duration
	SendTimeout  Duration
	RedisURL     string
	RedisChannel string
}

// MomentsConfig controls the key-moment detector.
type MomentsConfig struct {
	Interval  Duration
	Retention Duration
}

func loadFanout() FanoutConfig {
	return FanoutConfig{
		Interval:     durationEnvOrDefault(envFanoutInterval, defaultFanoutInterval),
		Debounce:     durationEnvOrDefault(envFanoutDebounce, defaultFanoutDebounce),
		SendTimeout:  durationEnvOrDefault(envFanoutSendTimeout, defaultFanoutSendTimeout),
		RedisURL:     envOrDefault(envRedisURL, ""),
		RedisChannel: envOrDefault(envRedisChannel, defaultRedisChannel),
	}
}

func loadMoments() MomentsConfig {
	return MomentsConfig{
		Interval:  durationEnvOrDefault(envMomentsInterval, defaultMomentsInterval),
		Retention: durationEnvOrDefault(envMomentsRetention, defaultMomentsRetention),
	}
}
