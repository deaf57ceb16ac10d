// Package poller runs named jobs on fixed intervals and tracks their health.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

const (
	defaultInterval = 30 * time.Second
	defaultTimeout  = 10 * time.Second
	readyFailures   = 3
)

// Job performs one unit of polling work and reports how many items it handled.
type Job func(ctx context.Context) (int, error)

// Poller runs a Job on an interval, bounding every run with a timeout.
type Poller struct {
	name     string
	job      Job
	logger   *slog.Logger
	metrics  *metrics.Recorder
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   Status
}

// Status describes the recent health of the poller loop.
type Status struct {
	ConsecutiveFailures int
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
}

// IsReady reports whether the poller has had a recent success and is not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < readyFailures
}

// New constructs a Poller with sane defaults.
func New(name string, job Job, logger *slog.Logger, recorder *metrics.Recorder, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Poller{
		name:     name,
		job:      job,
		logger:   logger,
		metrics:  recorder,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Name returns the poller name used in logs and metrics.
func (p *Poller) Name() string {
	return p.name
}

// Start begins polling until the context is cancelled or Stop is called.
// The first run happens immediately.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return
	}
	p.started = true
	p.startMu.Unlock()

	ticker := time.NewTicker(p.interval)

	go func() {
		defer close(p.exited)
		defer ticker.Stop()

		p.logInfo("poller started", slog.Int64(logging.FieldDurationMS, p.interval.Milliseconds()))
		p.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				p.logInfo("poller stopped")
				return
			case <-p.done:
				p.logInfo("poller stopped")
				return
			case <-ticker.C:
				p.runOnce(ctx)
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to exit or for ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.done)
	})

	p.startMu.Lock()
	started := p.started
	p.startMu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := p.now()
	p.recordAttempt(start)

	tickCtx, cancel := context.WithTimeout(ctx, p.timeout)
	count, err := p.job(tickCtx)
	cancel()

	elapsed := p.now().Sub(start)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		// Shutdown in progress; not a failure.
		return
	}
	p.metrics.RecordPollerCycle(p.name, elapsed, err)
	if err != nil {
		p.logError("poller run failed", err, slog.Int64(logging.FieldDurationMS, elapsed.Milliseconds()))
		p.recordFailure(err, start)
		return
	}

	p.recordSuccess(start)
	p.logDebug("poller run complete",
		logging.FieldCount, count,
		logging.FieldDurationMS, elapsed.Milliseconds(),
	)
}

func (p *Poller) logInfo(msg string, args ...any) {
	logging.Info(p.logger, msg, append(args, logging.FieldPoller, p.name)...)
}

func (p *Poller) logDebug(msg string, args ...any) {
	logging.Debug(p.logger, msg, append(args, logging.FieldPoller, p.name)...)
}

func (p *Poller) logError(msg string, err error, attrs ...any) {
	logging.Error(p.logger, msg, err, append(attrs, logging.FieldPoller, p.name)...)
}

func (p *Poller) recordAttempt(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = at
}

func (p *Poller) recordSuccess(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
}

func (p *Poller) recordFailure(err error, at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures++
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.status.LastAttempt = at
}

// Status returns a snapshot of the poller's recent health.
func (p *Poller) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}
