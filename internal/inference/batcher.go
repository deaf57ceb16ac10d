package inference

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
	"github.com/preston-bernstein/nba-live-service/internal/retry"
)

const (
	defaultTick             = 2 * time.Second
	defaultCallTimeout      = 20 * time.Second
	defaultRateLimitBackoff = 10 * time.Second
	defaultTokensPerItem    = 120
	maxRetryAfter           = time.Minute
)

// ErrBatcherClosed is returned for items submitted after the batcher stopped.
var ErrBatcherClosed = errors.New("inference batcher closed")

// BatcherOptions tunes coalescing and downstream protection.
type BatcherOptions struct {
	Tick             time.Duration
	MaxBatch         int // 0 takes every pending item
	CallTimeout      time.Duration
	RateLimitBackoff time.Duration
	TokensPerItem    int
	SystemPrompt     string
	Limiter          *Limiter
	Cache            *ResponseCache
	Clock            clockwork.Clock
	Logger           *slog.Logger
	Metrics          *metrics.Recorder
}

type pendingItem struct {
	item Item
	out  chan Result
}

// Batcher collects submitted items and answers them with at most one generator
// call per tick.
type Batcher struct {
	gen              Generator
	tick             time.Duration
	maxBatch         int
	callTimeout      time.Duration
	rateLimitBackoff time.Duration
	tokensPerItem    int
	system           string
	limiter          *Limiter
	cache            *ResponseCache
	clock            clockwork.Clock
	logger           *slog.Logger
	metrics          *metrics.Recorder

	mu      sync.Mutex
	pending []pendingItem
	closed  bool
}

// NewBatcher wraps gen. A nil gen behaves like NoopGenerator.
func NewBatcher(gen Generator, opts BatcherOptions) *Batcher {
	if gen == nil {
		gen = NoopGenerator{}
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.MaxBatch < 0 {
		opts.MaxBatch = 0
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.RateLimitBackoff <= 0 {
		opts.RateLimitBackoff = defaultRateLimitBackoff
	}
	if opts.TokensPerItem <= 0 {
		opts.TokensPerItem = defaultTokensPerItem
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Cache == nil {
		opts.Cache = NewResponseCache(0, 0, opts.Clock, opts.Metrics)
	}
	return &Batcher{
		gen:              gen,
		tick:             opts.Tick,
		maxBatch:         opts.MaxBatch,
		callTimeout:      opts.CallTimeout,
		rateLimitBackoff: opts.RateLimitBackoff,
		tokensPerItem:    opts.TokensPerItem,
		system:           opts.SystemPrompt,
		limiter:          opts.Limiter,
		cache:            opts.Cache,
		clock:            opts.Clock,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
	}
}

// Submit queues item for the next tick. The returned channel always receives exactly one Result.
func (b *Batcher) Submit(ctx context.Context, item Item) <-chan Result {
	out := make(chan Result, 1)
	if err := ctx.Err(); err != nil {
		out <- Result{ID: item.ID, Err: err}
		return out
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		out <- Result{ID: item.ID, Err: ErrBatcherClosed}
		return out
	}
	b.pending = append(b.pending, pendingItem{item: item, out: out})
	return out
}

// Pending returns the number of queued items.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Run flushes once per tick until ctx is done, then answers anything still queued.
func (b *Batcher) Run(ctx context.Context) error {
	ticker := b.clock.NewTicker(b.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.drain(ctx.Err())
			return nil
		case <-ticker.Chan():
			b.Flush(ctx)
		}
	}
}

// Flush issues one call for the queued items (up to MaxBatch when set) and routes the answers.
// It returns how many items were answered.
func (b *Batcher) Flush(ctx context.Context) int {
	batch := b.take()
	if len(batch) == 0 {
		return 0
	}

	items := make([]Item, len(batch))
	for i, p := range batch {
		items[i] = p.item
	}
	prompt := buildPrompt(items)
	key := Fingerprint(b.system, items)

	explanations, err := b.cache.Do(key, func() ([]Explanation, error) {
		return b.call(ctx, prompt.text, len(items))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn(b.logger, "inference batch failed", logging.FieldBatchSize, len(items), "error", err)
	}

	texts := make(map[string]string, len(explanations))
	for _, e := range explanations {
		texts[e.ID] = e.Text
	}
	for i, p := range batch {
		p.out <- Result{ID: p.item.ID, Text: texts[prompt.localIDs[i]], Err: err}
	}
	return len(batch)
}

func (b *Batcher) take() []pendingItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.pending)
	if b.maxBatch > 0 && n > b.maxBatch {
		n = b.maxBatch
	}
	batch := make([]pendingItem, n)
	copy(batch, b.pending[:n])
	b.pending = append(b.pending[:0], b.pending[n:]...)
	return batch
}

func (b *Batcher) drain(err error) {
	b.mu.Lock()
	rest := b.pending
	b.pending = nil
	b.closed = true
	b.mu.Unlock()
	for _, p := range rest {
		p.out <- Result{ID: p.item.ID, Err: err}
	}
}

// call runs the generator under the limiter. A downstream rate limit is retried
// once after Retry-After (or the default backoff); a second one yields no
// explanations and no error.
func (b *Batcher) call(ctx context.Context, prompt string, n int) ([]Explanation, error) {
	est := n*b.tokensPerItem + (len(b.system)+len(prompt))/4
	policy := retry.Policy{
		MaxAttempts:     2,
		InitialInterval: b.rateLimitBackoff,
		MaxInterval:     b.rateLimitBackoff,
		NoJitter:        true,
		MaxRetryAfter:   maxRetryAfter,
		RetryIf:         providers.IsRateLimited,
		Sleep:           b.sleep,
		OnRetry: func(_ int, delay time.Duration, err error) {
			logging.Warn(b.logger, "inference rate limited, retrying", logging.FieldWait, delay.Milliseconds(), "error", err)
		},
	}

	completion, err := retry.Do(ctx, policy, func(ctx context.Context) (Completion, error) {
		var reservation Reservation
		if b.limiter != nil {
			r, err := b.limiter.Acquire(ctx, est)
			if err != nil {
				return Completion{}, retry.Permanent(err)
			}
			reservation = r
		}
		callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()

		start := b.clock.Now()
		out, err := b.gen.Generate(callCtx, b.system, prompt)
		b.metrics.RecordInferenceCall(n, b.clock.Since(start), err)
		if err == nil && out.TokensUsed > 0 {
			reservation.Adjust(out.TokensUsed)
		}
		return out, err
	})
	if err != nil {
		if providers.IsRateLimited(err) {
			logging.Warn(b.logger, "inference rate limited twice, dropping batch", logging.FieldBatchSize, n)
			return nil, nil
		}
		return nil, err
	}
	return ParseExplanations(completion.Text), nil
}

func (b *Batcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.clock.After(d):
		return nil
	}
}
