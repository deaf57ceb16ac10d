package fixture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
)

func newTestProvider(start time.Time) (*Provider, *time.Time) {
	current := start
	p := NewWithStep(time.Second)
	p.now = func() time.Time { return current }
	return p, &current
}

func TestFetchScoreboardReturnsDeterministicGames(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	p, _ := newTestProvider(fixed)

	list, err := p.FetchScoreboard(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 games, got %d", len(list))
	}

	first := list[0]
	if first.ID != "fixture-1" || first.Provider != "fixture" || !first.IsLive() {
		t.Fatalf("unexpected first game: %+v", first)
	}
	if first.StartTime != fixed.Truncate(time.Hour).Format(time.RFC3339) {
		t.Fatalf("unexpected start time %s", first.StartTime)
	}
	if first.Period != 1 || first.Clock != "12:00" {
		t.Fatalf("expected tip-off state, got period %d clock %s", first.Period, first.Clock)
	}
	if list[1].Status != games.StatusScheduled || list[2].Status != games.StatusFinal {
		t.Fatalf("unexpected statuses %s %s", list[1].Status, list[2].Status)
	}
}

func TestEventsProgressWithTime(t *testing.T) {
	p, now := newTestProvider(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	evs, _ := p.FetchEvents(context.Background(), liveGameID)
	if len(evs) != 1 {
		t.Fatalf("expected one play at tip-off, got %d", len(evs))
	}

	*now = now.Add(2 * time.Second)
	evs, _ = p.FetchEvents(context.Background(), liveGameID)
	if len(evs) != 3 {
		t.Fatalf("expected three plays after two steps, got %d", len(evs))
	}
	for i, ev := range evs {
		if ev.Sequence != int64(i+1) {
			t.Fatalf("expected ascending sequences, got %d at %d", ev.Sequence, i)
		}
	}
	if evs[2].Score != (games.Score{Home: 3, Away: 2}) {
		t.Fatalf("unexpected running score %+v", evs[2].Score)
	}
}

func TestScriptEndsInFinal(t *testing.T) {
	p, now := newTestProvider(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	_, _ = p.FetchScoreboard(context.Background())

	*now = now.Add(time.Hour)
	list, _ := p.FetchScoreboard(context.Background())
	if list[0].Status != games.StatusFinal {
		t.Fatalf("expected simulated game to finish, got %s", list[0].Status)
	}
	if list[0].Score != (games.Score{Home: 13, Away: 12}) {
		t.Fatalf("unexpected final score %+v", list[0].Score)
	}
	evs, _ := p.FetchEvents(context.Background(), liveGameID)
	if len(evs) != len(script) {
		t.Fatalf("expected full script, got %d", len(evs))
	}
}

func TestFetchEventsUnknownGame(t *testing.T) {
	p := New()
	if _, err := p.FetchEvents(context.Background(), "nope"); !errors.Is(err, providers.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if evs, err := p.FetchEvents(context.Background(), "fixture-2"); err != nil || len(evs) != 0 {
		t.Fatalf("expected empty stream for scheduled game")
	}
}
