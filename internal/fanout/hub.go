// Package fanout pushes game changes to connected subscribers.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

const (
	defaultInterval    = time.Second
	defaultDebounce    = 2 * time.Second
	defaultSendTimeout = 5 * time.Second

	// MessageGameUpdate carries one changed game.
	MessageGameUpdate = "game_update"
	// MessageScoreboard carries every game, sent once on connect.
	MessageScoreboard = "scoreboard"
)

// Subscriber receives pushed payloads. Implementations must be safe for concurrent Send and Close.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Source supplies the latest snapshots. The boolean is false while no data is available.
type Source interface {
	Games() ([]games.Game, bool)
}

// Envelope is the wire shape of every hub message.
type Envelope struct {
	Type  string       `json:"type"`
	Game  *games.Game  `json:"game,omitempty"`
	Games []games.Game `json:"games,omitempty"`
}

// Options configures a Hub.
type Options struct {
	Interval    time.Duration
	Debounce    time.Duration
	SendTimeout time.Duration
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
}

// Hub diffs snapshots against what was last pushed and broadcasts changes.
// It only reads from its Source and never calls upstream providers.
type Hub struct {
	source      Source
	interval    time.Duration
	debounce    time.Duration
	sendTimeout time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *metrics.Recorder

	subsMu sync.RWMutex
	subs   map[string]Subscriber

	stateMu  sync.Mutex
	lastSent map[string]games.Game
	lastPush map[string]time.Time
}

// NewHub constructs a Hub reading from source.
func NewHub(source Source, opts Options) *Hub {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Hub{
		source:      source,
		interval:    opts.Interval,
		debounce:    opts.Debounce,
		sendTimeout: opts.SendTimeout,
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		subs:        make(map[string]Subscriber),
		lastSent:    make(map[string]games.Game),
		lastPush:    make(map[string]time.Time),
	}
}

// Connect registers sub and sends it the current scoreboard. A subscriber that
// cannot take the initial sync is disconnected and the send error returned.
func (h *Hub) Connect(ctx context.Context, sub Subscriber) error {
	h.subsMu.Lock()
	if old, ok := h.subs[sub.ID()]; ok && old != sub {
		_ = old.Close()
		h.metrics.AddSubscribers(-1)
	}
	h.subs[sub.ID()] = sub
	h.subsMu.Unlock()
	h.metrics.AddSubscribers(1)
	logging.Info(h.logger, "subscriber connected", logging.FieldSubscriber, sub.ID())

	list, ok := h.source.Games()
	if !ok {
		return nil
	}
	payload, err := json.Marshal(Envelope{Type: MessageScoreboard, Games: list})
	if err != nil {
		return fmt.Errorf("marshal scoreboard: %w", err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()
	if err := sub.Send(sendCtx, payload); err != nil {
		h.Disconnect(sub.ID())
		return fmt.Errorf("initial sync: %w", err)
	}
	return nil
}

// Disconnect removes and closes the subscriber. It reports whether it was connected.
func (h *Hub) Disconnect(id string) bool {
	h.subsMu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.subsMu.Unlock()
	if !ok {
		return false
	}
	_ = sub.Close()
	h.metrics.AddSubscribers(-1)
	logging.Info(h.logger, "subscriber disconnected", logging.FieldSubscriber, id)
	return true
}

// Has reports whether id is connected.
func (h *Hub) Has(id string) bool {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()
	_, ok := h.subs[id]
	return ok
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()
	return len(h.subs)
}

// Run checks for changes every interval until ctx is done. Cancellation is a clean exit.
func (h *Hub) Run(ctx context.Context) error {
	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		h.check(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.subsMu.RLock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.subsMu.RUnlock()
	for _, id := range ids {
		h.Disconnect(id)
	}
}

// check pushes every game whose tracked fields changed and whose debounce window has passed.
func (h *Hub) check(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(h.logger, "fanout check panicked", fmt.Errorf("%v", r))
		}
	}()
	if ctx.Err() != nil {
		return
	}

	list, ok := h.source.Games()
	if !ok {
		return
	}
	for _, g := range h.pending(list) {
		game := g
		payload, err := json.Marshal(Envelope{Type: MessageGameUpdate, Game: &game})
		if err != nil {
			logging.Error(h.logger, "marshal game update", err, logging.FieldGameID, g.ID)
			continue
		}
		h.Broadcast(ctx, payload)
	}
}

// pending returns games to push and marks them sent. Games missing from list
// are forgotten.
func (h *Hub) pending(list []games.Game) []games.Game {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	current := make(map[string]struct{}, len(list))
	for _, g := range list {
		current[g.ID] = struct{}{}
	}
	for id := range h.lastSent {
		if _, ok := current[id]; !ok {
			delete(h.lastSent, id)
			delete(h.lastPush, id)
		}
	}

	now := h.clock.Now()
	var out []games.Game
	for _, g := range list {
		prev, seen := h.lastSent[g.ID]
		if seen && !g.Changed(prev) {
			continue
		}
		if last, pushed := h.lastPush[g.ID]; pushed && now.Sub(last) < h.debounce {
			continue
		}
		h.lastSent[g.ID] = g
		h.lastPush[g.ID] = now
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Broadcast sends payload to every subscriber concurrently, each bounded by the
// send timeout. Subscribers whose send fails are disconnected.
func (h *Hub) Broadcast(ctx context.Context, payload []byte) (delivered, failed int) {
	h.subsMu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.subsMu.RUnlock()
	if len(targets) == 0 {
		return 0, 0
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		dropped []string
	)
	for _, sub := range targets {
		wg.Add(1)
		go func(sub Subscriber) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
			defer cancel()
			if err := sub.Send(sendCtx, payload); err != nil {
				logging.Warn(h.logger, "subscriber send failed", logging.FieldSubscriber, sub.ID(), "error", err)
				mu.Lock()
				dropped = append(dropped, sub.ID())
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	for _, id := range dropped {
		h.Disconnect(id)
	}
	failed = len(dropped)
	delivered = len(targets) - failed
	h.metrics.RecordBroadcast(delivered, failed)
	return delivered, failed
}
