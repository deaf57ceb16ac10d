package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hintErr struct{ d time.Duration }

func (e hintErr) Error() string                 { return "slow down" }
func (e hintErr) RetryAfterHint() time.Duration { return e.d }

func recordingSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var slept []time.Duration
	calls := 0
	got, err := Do(context.Background(), Policy{MaxAttempts: 3, Sleep: recordingSleep(&slept)},
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("boom")
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Len(t, slept, 2)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	var slept []time.Duration
	calls := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), Policy{MaxAttempts: 2, Sleep: recordingSleep(&slept)},
		func(context.Context) (int, error) {
			calls++
			return 0, boom
		})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
	assert.Len(t, slept, 1)
}

func TestDoPermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("bad request")
	_, err := Do(context.Background(), Policy{MaxAttempts: 5}, func(context.Context) (int, error) {
		calls++
		return 0, Permanent(boom)
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestDoRetryIfFiltersErrors(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		RetryIf:     func(err error) bool { _, ok := RetryAfter(err); return ok },
	}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("not rate limited")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoUsesRetryAfterHint(t *testing.T) {
	var slept []time.Duration
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 2, Sleep: recordingSleep(&slept)},
		func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, hintErr{d: 3 * time.Second}
			}
			return 1, nil
		})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, slept)
}

func TestNextDelayCapsRetryAfter(t *testing.T) {
	p := Policy{MaxRetryAfter: time.Second}
	d := p.NextDelay(p.Schedule(), hintErr{d: time.Minute})
	assert.Equal(t, time.Second, d)
}

func TestNextDelayJittersAroundSchedule(t *testing.T) {
	p := Policy{InitialInterval: 100 * time.Millisecond, RandomizationFactor: 0.5}
	schedule := p.Schedule()
	d := p.NextDelay(schedule, errors.New("boom"))
	assert.GreaterOrEqual(t, d, 50*time.Millisecond)
	assert.LessOrEqual(t, d, 150*time.Millisecond)
}

func TestNoJitterGivesExactSchedule(t *testing.T) {
	p := Policy{InitialInterval: 10 * time.Second, MaxInterval: 10 * time.Second, NoJitter: true}
	schedule := p.Schedule()
	assert.Equal(t, 10*time.Second, p.NextDelay(schedule, errors.New("boom")))
	assert.Equal(t, 10*time.Second, p.NextDelay(schedule, errors.New("boom")))
}

func TestDoHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 3, InitialInterval: time.Hour}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestOnRetryObservesAttempts(t *testing.T) {
	var attempts []int
	_, _ = Do(context.Background(), Policy{
		MaxAttempts: 3,
		Sleep:       func(context.Context, time.Duration) error { return nil },
		OnRetry:     func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) },
	}, func(context.Context) (int, error) { return 0, errors.New("boom") })

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), time.Millisecond))
}
