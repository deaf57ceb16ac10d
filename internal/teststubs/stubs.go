package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
)

// StubProvider is a test double for providers.DataProvider.
type StubProvider struct {
	Games      []games.Game
	Events     map[string][]games.PlayEvent
	Err        error
	EventsErr  map[string]error
	Calls      atomic.Int32
	EventCalls atomic.Int32
	Notify     chan struct{}

	mu     sync.Mutex
	closed bool
}

// FetchScoreboard returns configured games and error while tracking calls.
func (s *StubProvider) FetchScoreboard(ctx context.Context) ([]games.Game, error) {
	_ = ctx
	if s.Notify != nil {
		select {
		case <-s.Notify:
		default:
			close(s.Notify)
		}
	}
	s.Calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Games, s.Err
}

// FetchEvents returns the configured stream for gameID.
func (s *StubProvider) FetchEvents(ctx context.Context, gameID string) ([]games.PlayEvent, error) {
	_ = ctx
	s.EventCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.EventsErr[gameID]; ok {
		return nil, err
	}
	return s.Events[gameID], nil
}

// SetGames swaps the scoreboard returned by later calls.
func (s *StubProvider) SetGames(list []games.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Games = list
}

// SetEvents swaps the stream returned for gameID.
func (s *StubProvider) SetEvents(gameID string, events []games.PlayEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Events == nil {
		s.Events = make(map[string][]games.PlayEvent)
	}
	s.Events[gameID] = events
}

// Close records that the provider was closed.
func (s *StubProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *StubProvider) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// StubSubscriber is a test double for fanout.Subscriber.
type StubSubscriber struct {
	SubID   string
	SendErr error

	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

// ID returns the subscriber id.
func (s *StubSubscriber) ID() string { return s.SubID }

// Send records payload unless SendErr is set.
func (s *StubSubscriber) Send(ctx context.Context, payload []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return s.SendErr
	}
	s.messages = append(s.messages, append([]byte(nil), payload...))
	return nil
}

// Close marks the subscriber closed.
func (s *StubSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Messages returns a copy of every payload received.
func (s *StubSubscriber) Messages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.messages))
	copy(out, s.messages)
	return out
}

// Closed reports whether Close was called.
func (s *StubSubscriber) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
