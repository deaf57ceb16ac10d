package config

import "time"

const (
	envGameCapacity  = "CACHE_CAPACITY"
	envEventCapacity = "CACHE_EVENT_CAPACITY"
	envScoreboardTTL = "SCOREBOARD_TTL"
	envEventsTTL     = "EVENTS_TTL"
	envSweepSchedule = "CACHE_SWEEP_SCHEDULE"
	envSweepMaxAge   = "CACHE_SWEEP_MAX_AGE"

	defaultGameCapacity  = 64
	defaultEventCapacity = 32
	defaultSweepSchedule = "@every 1m"
)

const (
	// Scoreboard data older than a few missed polls is served as unavailable.
	defaultScoreboardTTL = 2 * Duration(time.Minute)
	defaultEventsTTL     = 10 * Duration(time.Minute)
	defaultSweepMaxAge   = 30 * Duration(time.Minute)
)

// CacheConfig bounds the live store and schedules the safety-net sweep.
type CacheConfig struct {
	GameCapacity  int
	EventCapacity int
	ScoreboardTTL Duration
	EventsTTL     Duration
	SweepSchedule string // robfig/cron spec
	SweepMaxAge   Duration
}

func loadCache() CacheConfig {
	return CacheConfig{
		GameCapacity:  intEnvOrDefault(envGameCapacity, defaultGameCapacity),
		EventCapacity: intEnvOrDefault(envEventCapacity, defaultEventCapacity),
		ScoreboardTTL: durationEnvOrDefault(envScoreboardTTL, defaultScoreboardTTL),
		EventsTTL:     durationEnvOrDefault(envEventsTTL, defaultEventsTTL),
		SweepSchedule: envOrDefault(envSweepSchedule, defaultSweepSchedule),
		SweepMaxAge:   durationEnvOrDefault(envSweepMaxAge, defaultSweepMaxAge),
	}
}
