// Package fixture simulates a live game so the service can run without upstream credentials.
package fixture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/domain/teams"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
)

const (
	providerName = "fixture"
	liveGameID   = "fixture-1"
	defaultStep  = 3 * time.Second
)

var (
	celtics  = teams.Team{ID: "bos", Name: "Celtics", FullName: "Boston Celtics", Abbreviation: "BOS", City: "Boston"}
	lakers   = teams.Team{ID: "lal", Name: "Lakers", FullName: "Los Angeles Lakers", Abbreviation: "LAL", City: "Los Angeles"}
	warriors = teams.Team{ID: "gsw", Name: "Warriors", FullName: "Golden State Warriors", Abbreviation: "GSW", City: "San Francisco"}
	heat     = teams.Team{ID: "mia", Name: "Heat", FullName: "Miami Heat", Abbreviation: "MIA", City: "Miami"}
	knicks   = teams.Team{ID: "nyk", Name: "Knicks", FullName: "New York Knicks", Abbreviation: "NYK", City: "New York"}
	nuggets  = teams.Team{ID: "den", Name: "Nuggets", FullName: "Denver Nuggets", Abbreviation: "DEN", City: "Denver"}
)

type scriptedPlay struct {
	period int
	clock  string
	side   games.Side
	action games.ActionType
	points int
	shot   int
	text   string
}

// script drives fixture-1 from tip-off to the final buzzer.
var script = []scriptedPlay{
	{1, "12:00", games.SideNone, games.ActionPeriodStart, 0, 0, "Start of 1st quarter"},
	{1, "11:32", games.SideAway, games.ActionMadeShot, 2, 2, "Lakers driving layup"},
	{1, "11:05", games.SideHome, games.ActionMadeShot, 3, 3, "Celtics three point jumper"},
	{1, "10:40", games.SideAway, games.ActionMissedShot, 0, 3, "Lakers miss three point jumper"},
	{1, "10:38", games.SideHome, games.ActionRebound, 0, 0, "Celtics defensive rebound"},
	{1, "10:20", games.SideHome, games.ActionMadeShot, 2, 2, "Celtics pullup jump shot"},
	{1, "9:55", games.SideHome, games.ActionMadeShot, 3, 3, "Celtics three point jumper"},
	{1, "9:30", games.SideAway, games.ActionFreeThrowMade, 1, 0, "Lakers free throw 1 of 2"},
	{1, "9:30", games.SideAway, games.ActionFreeThrowMade, 1, 0, "Lakers free throw 2 of 2"},
	{1, "0:00", games.SideNone, games.ActionPeriodEnd, 0, 0, "End of 1st quarter"},
	{4, "12:00", games.SideNone, games.ActionPeriodStart, 0, 0, "Start of 4th quarter"},
	{4, "2:05", games.SideAway, games.ActionMadeShot, 3, 3, "Lakers three point jumper"},
	{4, "1:45", games.SideAway, games.ActionMadeShot, 3, 3, "Lakers step back three"},
	{4, "1:20", games.SideHome, games.ActionMadeShot, 2, 2, "Celtics driving dunk"},
	{4, "0:50", games.SideHome, games.ActionTurnover, 0, 0, "Celtics bad pass turnover"},
	{4, "0:31", games.SideAway, games.ActionMadeShot, 2, 2, "Lakers turnaround jumper"},
	{4, "0:04.5", games.SideHome, games.ActionMadeShot, 3, 3, "Celtics corner three"},
	{4, "0:00", games.SideNone, games.ActionPeriodEnd, 0, 0, "End of 4th quarter"},
}

// Provider replays a scripted game, revealing one play per step since the first call.
type Provider struct {
	now  func() time.Time
	step time.Duration

	mu      sync.Mutex
	started time.Time
}

// New creates a fixture provider revealing one play every few seconds.
func New() *Provider {
	return NewWithStep(defaultStep)
}

// NewWithStep creates a fixture provider revealing one play per step.
func NewWithStep(step time.Duration) *Provider {
	if step <= 0 {
		step = defaultStep
	}
	return &Provider{
		now:  time.Now,
		step: step,
	}
}

// FetchScoreboard returns the simulated game alongside static scheduled and final games.
func (p *Provider) FetchScoreboard(ctx context.Context) ([]games.Game, error) {
	_ = ctx
	now, revealed := p.progress()
	day := now.UTC().Truncate(time.Hour)

	live := games.Game{
		ID:        liveGameID,
		Provider:  providerName,
		HomeTeam:  celtics,
		AwayTeam:  lakers,
		StartTime: day.Format(time.RFC3339),
		Status:    games.StatusLive,
	}
	plays := buildEvents(revealed)
	if len(plays) > 0 {
		last := plays[len(plays)-1]
		live.Period = last.Period
		live.Clock = last.Clock
		live.Score = last.Score
	}
	if revealed >= len(script) {
		live.Status = games.StatusFinal
		live.Clock = ""
	}

	return []games.Game{
		live,
		{
			ID:        "fixture-2",
			Provider:  providerName,
			HomeTeam:  warriors,
			AwayTeam:  heat,
			StartTime: day.Add(3 * time.Hour).Format(time.RFC3339),
			Status:    games.StatusScheduled,
		},
		{
			ID:        "fixture-3",
			Provider:  providerName,
			HomeTeam:  knicks,
			AwayTeam:  nuggets,
			StartTime: day.Add(-3 * time.Hour).Format(time.RFC3339),
			Status:    games.StatusFinal,
			Period:    4,
			Score:     games.Score{Home: 112, Away: 108},
		},
	}, nil
}

// FetchEvents returns every play revealed so far for the simulated game.
func (p *Provider) FetchEvents(ctx context.Context, gameID string) ([]games.PlayEvent, error) {
	_ = ctx
	switch gameID {
	case liveGameID:
		_, revealed := p.progress()
		return buildEvents(revealed), nil
	case "fixture-2", "fixture-3":
		return nil, nil
	default:
		return nil, fmt.Errorf("fixture: %w: %q", providers.ErrGameNotFound, gameID)
	}
}

func (p *Provider) progress() (time.Time, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.started.IsZero() {
		p.started = now
	}
	revealed := int(now.Sub(p.started)/p.step) + 1
	if revealed > len(script) {
		revealed = len(script)
	}
	return now, revealed
}

func buildEvents(n int) []games.PlayEvent {
	out := make([]games.PlayEvent, 0, n)
	score := games.Score{}
	for i := 0; i < n && i < len(script); i++ {
		play := script[i]
		switch play.side {
		case games.SideHome:
			score.Home += play.points
		case games.SideAway:
			score.Away += play.points
		}
		ev := games.PlayEvent{
			GameID:      liveGameID,
			Sequence:    int64(i + 1),
			Period:      play.period,
			Clock:       play.clock,
			Side:        play.side,
			Action:      play.action,
			Points:      play.points,
			ShotValue:   play.shot,
			Description: play.text,
			Score:       score,
		}
		if play.side == games.SideHome {
			ev.TeamID = celtics.ID
		} else if play.side == games.SideAway {
			ev.TeamID = lakers.ID
		}
		out = append(out, ev)
	}
	return out
}
