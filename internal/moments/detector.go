package moments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/inference"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

const (
	defaultInterval = 2 * time.Second

	// MessageMoment announces a newly detected moment.
	MessageMoment = "moment"
	// MessageExplanation re-sends a moment once its explanation is attached.
	MessageExplanation = "moment_explained"
)

// Source is the read side of the live store the detector needs.
type Source interface {
	LiveGameIDs() []string
	Game(id string) (games.Game, bool)
	EventsAfter(gameID string, seq int64) []games.PlayEvent
}

// Explainer accepts explanation requests; the channel yields exactly one result.
type Explainer interface {
	Submit(ctx context.Context, item inference.Item) <-chan inference.Result
}

// Publisher pushes a payload to every connected subscriber.
type Publisher interface {
	Broadcast(ctx context.Context, payload []byte) (delivered, failed int)
}

// Options configures a Detector. Explainer and Publisher are optional.
type Options struct {
	Interval  time.Duration
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
	Explainer Explainer
	Publisher Publisher
}

// Envelope is the wire shape of moment messages.
type Envelope struct {
	Type   string `json:"type"`
	Moment Moment `json:"moment"`
}

type gameState struct {
	watermark int64
	primed    bool
	score     games.Score
	recent    []games.PlayEvent
}

// Detector walks each live game's stream past a per-game watermark and records moments.
type Detector struct {
	source    Source
	cache     *Cache
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *metrics.Recorder
	explainer Explainer
	publisher Publisher

	mu     sync.Mutex
	states map[string]*gameState

	pending sync.WaitGroup
}

func NewDetector(source Source, momentCache *Cache, opts Options) *Detector {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Detector{
		source:    source,
		cache:     momentCache,
		interval:  opts.Interval,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		explainer: opts.Explainer,
		publisher: opts.Publisher,
		states:    make(map[string]*gameState),
	}
}

// Run ticks until ctx is done, then waits for outstanding explanation requests.
func (d *Detector) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()
	defer d.pending.Wait()

	for {
		d.safeTick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

func (d *Detector) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(d.logger, "moment detection panicked", fmt.Errorf("%v", r))
		}
	}()
	d.Tick(ctx)
}

// Tick processes every live game once and returns the moments it recorded.
func (d *Detector) Tick(ctx context.Context) []Moment {
	if ctx.Err() != nil {
		return nil
	}
	live := d.source.LiveGameIDs()
	d.forgetFinished(live)

	var found []Moment
	for _, gameID := range live {
		found = append(found, d.scan(gameID)...)
	}
	d.cache.Prune()

	for _, m := range found {
		d.metrics.RecordMoment(string(m.Type))
		logging.Info(d.logger, "moment detected",
			logging.FieldGameID, m.GameID,
			logging.FieldSequence, m.Event.Sequence,
			logging.FieldMoment, string(m.Type),
		)
		d.publish(ctx, MessageMoment, m)
		d.explain(ctx, m)
	}
	return found
}

// Watermark returns the highest processed sequence for gameID and whether the game is tracked.
func (d *Detector) Watermark(gameID string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.states[gameID]
	if !ok {
		return 0, false
	}
	return st.watermark, true
}

func (d *Detector) scan(gameID string) []Moment {
	d.mu.Lock()
	st, ok := d.states[gameID]
	if !ok {
		st = &gameState{watermark: -1}
		d.states[gameID] = st
	}
	watermark := st.watermark
	d.mu.Unlock()

	events := d.source.EventsAfter(gameID, watermark)
	if len(events) == 0 {
		return nil
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Sequence < events[j].Sequence })

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()
	var out []Moment
	for _, ev := range events {
		if ev.Sequence <= st.watermark {
			continue
		}
		if !st.primed {
			st.score = scoreBefore(ev)
			st.primed = true
		}
		st.recent = append(st.recent, ev)
		if len(st.recent) > runWindow {
			st.recent = append(st.recent[:0], st.recent[len(st.recent)-runWindow:]...)
		}
		for _, kind := range Evaluate(st.score, ev, st.recent) {
			m := Moment{
				ID:         uuid.NewString(),
				GameID:     gameID,
				Type:       kind,
				Event:      ev,
				DetectedAt: now,
			}
			if d.cache.Add(m) {
				out = append(out, m)
			}
		}
		st.watermark = ev.Sequence
		if ev.IsScoring() || ev.Score != (games.Score{}) {
			st.score = ev.Score
		}
	}
	return out
}

// scoreBefore reconstructs the score prior to the first event seen for a game,
// which may be mid-game when the detector starts late.
func scoreBefore(ev games.PlayEvent) games.Score {
	s := ev.Score
	if !ev.IsScoring() {
		return s
	}
	switch ev.Side {
	case games.SideHome:
		s.Home -= ev.Points
	case games.SideAway:
		s.Away -= ev.Points
	}
	return s
}

// forgetFinished drops watermarks of games that are no longer live.
func (d *Detector) forgetFinished(live []string) {
	keep := make(map[string]struct{}, len(live))
	for _, id := range live {
		keep[id] = struct{}{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range d.states {
		if _, ok := keep[id]; !ok {
			delete(d.states, id)
		}
	}
}

func (d *Detector) publish(ctx context.Context, kind string, m Moment) {
	if d.publisher == nil {
		return
	}
	payload, err := json.Marshal(Envelope{Type: kind, Moment: m})
	if err != nil {
		logging.Error(d.logger, "marshal moment", err, logging.FieldGameID, m.GameID)
		return
	}
	d.publisher.Broadcast(ctx, payload)
}

type explainPayload struct {
	Type     Type        `json:"type"`
	Home     string      `json:"home,omitempty"`
	Away     string      `json:"away,omitempty"`
	Period   int         `json:"period"`
	Clock    string      `json:"clock"`
	Side     games.Side  `json:"side,omitempty"`
	Play     string      `json:"play"`
	Score    games.Score `json:"score"`
	Sequence int64       `json:"sequence"`
}

// explain hands m to the explainer and attaches the answer when it arrives.
func (d *Detector) explain(ctx context.Context, m Moment) {
	if d.explainer == nil {
		return
	}
	p := explainPayload{
		Type:     m.Type,
		Period:   m.Event.Period,
		Clock:    m.Event.Clock,
		Side:     m.Event.Side,
		Play:     m.Event.Description,
		Score:    m.Event.Score,
		Sequence: m.Event.Sequence,
	}
	if g, ok := d.source.Game(m.GameID); ok {
		p.Home = g.HomeTeam.Label()
		p.Away = g.AwayTeam.Label()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return
	}

	results := d.explainer.Submit(ctx, inference.Item{
		ID:      m.ID,
		GameID:  m.GameID,
		Kind:    string(m.Type),
		Payload: string(body),
	})

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		var res inference.Result
		select {
		case res = <-results:
		case <-ctx.Done():
			return
		}
		if res.Err != nil {
			if !errors.Is(res.Err, context.Canceled) && !errors.Is(res.Err, inference.ErrBatcherClosed) {
				logging.Warn(d.logger, "moment explanation failed", logging.FieldGameID, m.GameID, "error", res.Err)
			}
			return
		}
		if res.Text == "" {
			return
		}
		if d.cache.Attach(m.GameID, m.ID, res.Text) {
			m.Explanation = res.Text
			d.publish(ctx, MessageExplanation, m)
		}
	}()
}
