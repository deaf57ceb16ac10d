package games

import (
	"strings"

	"github.com/preston-bernstein/nba-live-service/internal/domain/teams"
)

// GameStatus mirrors the shared contract for game lifecycle states.
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusLive      GameStatus = "live"
	StatusFinal     GameStatus = "final"
)

// ParseStatus normalizes a status string; unknown values map to StatusScheduled.
func ParseStatus(raw string) GameStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "live", "in_progress", "in progress", "halftime", "end of period":
		return StatusLive
	case "final", "ended", "final/ot":
		return StatusFinal
	default:
		return StatusScheduled
	}
}

// Score captures home and away points.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Diff returns home minus away.
func (s Score) Diff() int {
	return s.Home - s.Away
}

// AbsDiff returns the absolute point differential.
func (s Score) AbsDiff() int {
	d := s.Diff()
	if d < 0 {
		return -d
	}
	return d
}

// Tied reports whether both sides have the same score.
func (s Score) Tied() bool {
	return s.Home == s.Away
}

// Leader reports which side leads, or SideNone when tied.
func (s Score) Leader() Side {
	switch {
	case s.Home > s.Away:
		return SideHome
	case s.Away > s.Home:
		return SideAway
	default:
		return SideNone
	}
}

// Game is a point-in-time snapshot of one game as exposed by the service.
type Game struct {
	ID        string     `json:"id"`
	Provider  string     `json:"provider"`
	HomeTeam  teams.Team `json:"homeTeam"`
	AwayTeam  teams.Team `json:"awayTeam"`
	StartTime string     `json:"startTime"`
	Status    GameStatus `json:"status"`
	Period    int        `json:"period"`
	Clock     string     `json:"clock,omitempty"`
	Score     Score      `json:"score"`
}

// IsLive reports whether the game is currently in progress.
func (g Game) IsLive() bool {
	return g.Status == StatusLive
}

// Changed reports whether any broadcast-relevant field differs from prev.
// Clock ticks alone are not considered a change.
func (g Game) Changed(prev Game) bool {
	return g.Status != prev.Status ||
		g.Period != prev.Period ||
		g.Score.Home != prev.Score.Home ||
		g.Score.Away != prev.Score.Away
}

// TeamFor returns the team on the given side.
func (g Game) TeamFor(side Side) teams.Team {
	if side == SideAway {
		return g.AwayTeam
	}
	return g.HomeTeam
}

// Scoreboard is the coarse-grained snapshot of all tracked games.
type Scoreboard struct {
	Games []Game `json:"games"`
}
