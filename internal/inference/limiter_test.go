package inference

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

func TestLimiterBlocksUntilRequestWindowFrees(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := metrics.NewRecorder()
	l := NewLimiter(LimiterConfig{RequestsPerMinute: 10, Safety: 0.5, Clock: clock, Metrics: rec})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := l.Acquire(ctx, 0)
		require.NoError(t, err)
	}
	reqs, _ := l.Usage()
	assert.Equal(t, 5, reqs)

	done := make(chan error, 1)
	go func() {
		_, err := l.Acquire(ctx, 0)
		done <- err
	}()

	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	clock.Advance(59 * time.Second)
	select {
	case <-done:
		t.Fatal("acquire returned before the window freed")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire did not unblock")
	}
	reqs, _ = l.Usage()
	assert.Equal(t, 1, reqs, "old entries expired and the new call was recorded")
	assert.Equal(t, 1, rec.Activity().LimiterWaits)
}

func TestLimiterNeverExceedsCeiling(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiter(LimiterConfig{RequestsPerMinute: 4, Safety: 1, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	admitted := 0
	for i := 0; i < 10; i++ {
		attempt, stop := context.WithTimeout(ctx, 10*time.Millisecond)
		if _, err := l.Acquire(attempt, 0); err == nil {
			admitted++
		}
		stop()
	}
	assert.Equal(t, 4, admitted)
}

func TestLimiterTokenWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiter(LimiterConfig{TokensPerMinute: 1000, Safety: 0.85, Clock: clock})
	ctx := context.Background()

	first, err := l.Acquire(ctx, 500)
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	_, err = l.Acquire(ctx, 300)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(short, 100), context.DeadlineExceeded, "850 limit: 800 used + 100 does not fit")

	first.Adjust(200)
	_, tokens := l.Usage()
	assert.Equal(t, 500, tokens)
	require.NoError(t, l.Wait(ctx, 100), "actual cost freed room")

	clock.Advance(50 * time.Second)
	require.NoError(t, l.Wait(ctx, 500), "first call aged out of the window")
}

func TestLimiterAllowsOversizedCallIntoEmptyWindow(t *testing.T) {
	l := NewLimiter(LimiterConfig{TokensPerMinute: 100, Clock: clockwork.NewFakeClock()})
	require.NoError(t, l.Wait(context.Background(), 5000))
}

func TestLimiterDisabledWindows(t *testing.T) {
	l := NewLimiter(LimiterConfig{Clock: clockwork.NewFakeClock()})
	for i := 0; i < 100; i++ {
		_, err := l.Acquire(context.Background(), 1000)
		require.NoError(t, err)
	}
}

func TestLimiterReservationAdjustsItsOwnEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiter(LimiterConfig{TokensPerMinute: 10000, Clock: clock})
	ctx := context.Background()

	early, err := l.Acquire(ctx, 1000)
	require.NoError(t, err)
	late, err := l.Acquire(ctx, 2000)
	require.NoError(t, err)

	early.Adjust(100)
	_, tokens := l.Usage()
	assert.Equal(t, 2100, tokens, "only the first call's estimate is replaced")

	late.Adjust(50)
	_, tokens = l.Usage()
	assert.Equal(t, 150, tokens)

	clock.Advance(time.Minute)
	early.Adjust(9999)
	_, tokens = l.Usage()
	assert.Zero(t, tokens, "adjusting an expired call is a no-op")

	Reservation{}.Adjust(10)
}

func TestLimiterAdjustReplacesMostRecentEntry(t *testing.T) {
	l := NewLimiter(LimiterConfig{TokensPerMinute: 10000, Clock: clockwork.NewFakeClock()})
	l.Record(1000)
	l.Record(2000)
	l.Adjust(300)
	_, tokens := l.Usage()
	assert.Equal(t, 1300, tokens)
}
