// Package store coordinates game snapshots, play-by-play streams and the live-game set.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/nba-live-service/internal/cache"
	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

const (
	gamesCacheName  = "games"
	eventsCacheName = "events"

	defaultGameCapacity  = 64
	defaultEventCapacity = 32
)

// Options configures a LiveStore.
type Options struct {
	GameCapacity  int
	EventCapacity int
	ScoreboardTTL time.Duration
	EventsTTL     time.Duration
	Clock         clockwork.Clock
	Metrics       *metrics.Recorder
}

// Transition lists games whose live state changed in one scoreboard update.
type Transition struct {
	Started []string
	Ended   []string
}

// LiveStore keeps game snapshots and event streams behind a single lock so that
// snapshot replacement, live-set membership and stream eviction happen together.
type LiveStore struct {
	mu           sync.Mutex
	games        *cache.Store[string, games.Game]
	events       *cache.Store[string, []games.PlayEvent]
	live         map[string]struct{}
	scoreboardAt time.Time
	ttl          time.Duration
	clock        clockwork.Clock
}

// NewLiveStore constructs an empty store.
func NewLiveStore(opts Options) *LiveStore {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.GameCapacity <= 0 {
		opts.GameCapacity = defaultGameCapacity
	}
	if opts.EventCapacity <= 0 {
		opts.EventCapacity = defaultEventCapacity
	}
	rec := opts.Metrics

	return &LiveStore{
		games: cache.New[string, games.Game](opts.GameCapacity, opts.ScoreboardTTL,
			cache.WithClock[string, games.Game](opts.Clock),
			cache.WithAccessHook[string, games.Game](func(hit bool) { rec.RecordCacheAccess(gamesCacheName, hit) }),
			cache.WithEvictionHook[string, games.Game](func(_ string, reason cache.EvictReason) {
				rec.RecordCacheEviction(gamesCacheName, string(reason))
			}),
		),
		events: cache.New[string, []games.PlayEvent](opts.EventCapacity, opts.EventsTTL,
			cache.WithClock[string, []games.PlayEvent](opts.Clock),
			cache.WithAccessHook[string, []games.PlayEvent](func(hit bool) { rec.RecordCacheAccess(eventsCacheName, hit) }),
			cache.WithEvictionHook[string, []games.PlayEvent](func(_ string, reason cache.EvictReason) {
				rec.RecordCacheEviction(eventsCacheName, string(reason))
			}),
		),
		live:  make(map[string]struct{}),
		ttl:   opts.ScoreboardTTL,
		clock: opts.Clock,
	}
}

// ApplyScoreboard replaces every snapshot with the given set, recomputes the live
// set and evicts the event streams of games that are no longer live.
func (s *LiveStore) ApplyScoreboard(list []games.Game) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(list))
	nextLive := make(map[string]struct{})
	for _, g := range list {
		if g.ID == "" {
			continue
		}
		seen[g.ID] = struct{}{}
		s.games.Set(g.ID, g)
		if g.IsLive() {
			nextLive[g.ID] = struct{}{}
		}
	}

	for _, id := range s.games.Keys() {
		if _, ok := seen[id]; !ok {
			s.games.Remove(id)
		}
	}

	var tr Transition
	for id := range nextLive {
		if _, ok := s.live[id]; !ok {
			tr.Started = append(tr.Started, id)
		}
	}
	for id := range s.live {
		if _, ok := nextLive[id]; !ok {
			tr.Ended = append(tr.Ended, id)
			s.events.Remove(id)
		}
	}
	sort.Strings(tr.Started)
	sort.Strings(tr.Ended)

	s.live = nextLive
	s.scoreboardAt = s.clock.Now()
	return tr
}

// AppendEvents merges events into the game's stream, ordered by sequence with
// duplicates dropped. Events for games outside the live set are ignored.
// Returns the number of new events stored.
func (s *LiveStore) AppendEvents(gameID string, incoming []games.PlayEvent) int {
	if len(incoming) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[gameID]; !ok {
		return 0
	}

	added := 0
	s.events.Update(gameID, func(current []games.PlayEvent, _ bool) []games.PlayEvent {
		var merged []games.PlayEvent
		merged, added = mergeEvents(gameID, current, incoming)
		return merged
	})
	return added
}

func mergeEvents(gameID string, current, incoming []games.PlayEvent) ([]games.PlayEvent, int) {
	known := make(map[int64]struct{}, len(current))
	for _, ev := range current {
		known[ev.Sequence] = struct{}{}
	}

	merged := make([]games.PlayEvent, len(current), len(current)+len(incoming))
	copy(merged, current)
	added := 0
	for _, ev := range incoming {
		if _, dup := known[ev.Sequence]; dup {
			continue
		}
		if ev.GameID == "" {
			ev.GameID = gameID
		}
		known[ev.Sequence] = struct{}{}
		merged = append(merged, ev)
		added++
	}
	if added > 0 {
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Sequence < merged[j].Sequence })
	}
	return merged, added
}

// Game returns the cached snapshot for id.
func (s *LiveStore) Game(id string) (games.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games.Get(id)
}

// Games returns every cached snapshot ordered by start time then id.
// The boolean is false until a scoreboard has been applied, or once it is older than the TTL.
func (s *LiveStore) Games() ([]games.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.freshLocked() {
		return nil, false
	}
	keys := s.games.Keys()
	out := make([]games.Game, 0, len(keys))
	for _, id := range keys {
		if entry, ok := s.games.Peek(id); ok {
			out = append(out, entry.Value)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, true
}

// LiveGameIDs returns the ids currently in the live set, sorted.
func (s *LiveStore) LiveGameIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsLive reports whether id is in the live set.
func (s *LiveStore) IsLive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[id]
	return ok
}

// Events returns a copy of the game's stream.
func (s *LiveStore) Events(gameID string) ([]games.PlayEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.events.Get(gameID)
	if !ok {
		return nil, false
	}
	out := make([]games.PlayEvent, len(stream))
	copy(out, stream)
	return out, true
}

// EventsAfter returns events with a sequence strictly greater than seq, ascending.
func (s *LiveStore) EventsAfter(gameID string, seq int64) []games.PlayEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.events.Peek(gameID)
	if !ok {
		return nil
	}
	stream := entry.Value
	idx := sort.Search(len(stream), func(i int) bool { return stream[i].Sequence > seq })
	if idx == len(stream) {
		return nil
	}
	out := make([]games.PlayEvent, len(stream)-idx)
	copy(out, stream[idx:])
	return out
}

// EvictEvents drops the game's stream immediately.
func (s *LiveStore) EvictEvents(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Remove(gameID)
}

// Sweep removes snapshots and streams stored longer than maxAge ago.
func (s *LiveStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games.SweepOlderThan(maxAge) + s.events.SweepOlderThan(maxAge)
}

// Ready reports whether a fresh scoreboard is available.
func (s *LiveStore) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freshLocked()
}

func (s *LiveStore) freshLocked() bool {
	if s.scoreboardAt.IsZero() {
		return false
	}
	return s.ttl <= 0 || s.clock.Since(s.scoreboardAt) <= s.ttl
}
