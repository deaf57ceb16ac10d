package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	calls  atomic.Int32
	notify chan struct{}

	mu  sync.Mutex
	err error
}

func (c *countingJob) run(ctx context.Context) (int, error) {
	_ = ctx
	if c.calls.Add(1) == 1 && c.notify != nil {
		close(c.notify)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return 1, nil
}

func (c *countingJob) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func TestPollerRunsImmediatelyAndOnTicks(t *testing.T) {
	job := &countingJob{notify: make(chan struct{})}
	p := New("test", job.run, nil, nil, 10*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)

	select {
	case <-job.notify:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for initial run")
	}

	time.Sleep(35 * time.Millisecond) // allow at least one ticker fire
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop returned error: %v", err)
	}

	if job.calls.Load() < 2 {
		t.Fatalf("expected initial run plus ticks, got %d", job.calls.Load())
	}
}

func TestPollerStopWaitsForExit(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	job := func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}
	p := New("slow", job, nil, nil, time.Hour, time.Hour)
	p.Start(context.Background())
	<-started

	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Stop(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected stop to time out while job runs, got %v", err)
	}

	close(release)
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("expected confirmed exit after release, got %v", err)
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	job := &countingJob{notify: make(chan struct{})}
	p := New("test", job.run, nil, nil, 5*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx)

	select {
	case <-job.notify:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for initial run")
	}

	cancel()
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	callsAfterStop := job.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if job.calls.Load() != callsAfterStop {
		t.Fatalf("expected no additional runs after stop; before=%d after=%d", callsAfterStop, job.calls.Load())
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	p := New("test", (&countingJob{}).run, nil, nil, time.Hour, 0)

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("first stop returned error: %v", err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("second stop returned error: %v", err)
	}
}

func TestPollerStartIsIdempotent(t *testing.T) {
	job := &countingJob{}
	p := New("test", job.run, nil, nil, time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	p.Start(ctx) // should no-op

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop returned error: %v", err)
	}
	if job.calls.Load() > 1 {
		t.Fatalf("expected a single loop, got %d runs", job.calls.Load())
	}
}

func TestPollerDefaults(t *testing.T) {
	p := New("test", (&countingJob{}).run, nil, nil, 0, 0)
	if p.interval != defaultInterval {
		t.Fatalf("expected default interval %s, got %s", defaultInterval, p.interval)
	}
	if p.timeout != defaultTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultTimeout, p.timeout)
	}
	if p.Name() != "test" {
		t.Fatalf("unexpected name %s", p.Name())
	}
}

func TestPollerStatusTracksFailuresAndSuccess(t *testing.T) {
	job := &countingJob{}
	job.setErr(errors.New("boom"))
	p := New("test", job.run, nil, nil, time.Millisecond, time.Second)
	ctx := context.Background()

	p.runOnce(ctx)
	status := p.Status()
	if status.ConsecutiveFailures != 1 {
		t.Fatalf("expected 1 failure, got %d", status.ConsecutiveFailures)
	}
	if status.LastError == "" {
		t.Fatalf("expected last error recorded")
	}
	if status.LastSuccess != (time.Time{}) {
		t.Fatalf("expected no success recorded yet")
	}
	if status.IsReady() {
		t.Fatalf("expected not ready after failure")
	}

	job.setErr(nil)
	p.runOnce(ctx)
	status = p.Status()
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("expected failures reset, got %d", status.ConsecutiveFailures)
	}
	if status.LastSuccess.IsZero() {
		t.Fatalf("expected success timestamp")
	}
	if !status.IsReady() {
		t.Fatalf("expected ready after success")
	}
}

func TestPollerNotReadyAfterRepeatedFailures(t *testing.T) {
	s := Status{LastSuccess: time.Now(), ConsecutiveFailures: readyFailures}
	if s.IsReady() {
		t.Fatalf("expected not ready after %d failures", readyFailures)
	}
}

func TestPollerTimeoutCountsAsFailure(t *testing.T) {
	job := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	p := New("slow", job, nil, nil, time.Hour, 5*time.Millisecond)
	p.runOnce(context.Background())

	if p.Status().ConsecutiveFailures != 1 {
		t.Fatalf("expected timed out run to count as failure")
	}
}

func TestPollerCancellationIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := func(jobCtx context.Context) (int, error) {
		cancel()
		<-jobCtx.Done()
		return 0, jobCtx.Err()
	}
	p := New("cancel", job, nil, nil, time.Hour, time.Hour)
	p.runOnce(ctx)

	if p.Status().ConsecutiveFailures != 0 {
		t.Fatalf("expected cancellation to be a clean exit")
	}
}

func TestPollerLogsOnErrorAndSuccess(t *testing.T) {
	job := &countingJob{}
	job.setErr(errors.New("fail"))
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	p := New("test", job.run, logger, nil, time.Second, time.Second)
	p.runOnce(context.Background()) // should log error

	job.setErr(nil)
	p.runOnce(context.Background()) // should log debug
}
