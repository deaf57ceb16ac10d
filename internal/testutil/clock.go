package testutil

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// GameNight is a fixed instant used by tests that need a stable wall clock.
var GameNight = time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

// NewFakeClock returns a fake clock parked at GameNight.
func NewFakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(GameNight)
}

// MustParseRFC3339 parses an RFC3339 timestamp or panics; intended for tests.
func MustParseRFC3339(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	return t
}
