package balldontlie

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/domain/teams"
)

func mapGame(g gameResponse) games.Game {
	status := mapStatus(g.Status, g.Period)
	game := games.Game{
		ID:        fmt.Sprintf("%s%d", gameIDPrefix, g.ID),
		Provider:  providerName,
		HomeTeam:  mapTeam(g.HomeTeam),
		AwayTeam:  mapTeam(g.VisitorTeam),
		StartTime: g.Date,
		Status:    status,
		Period:    g.Period,
		Score: games.Score{
			Home: g.HomeTeamScore,
			Away: g.VisitorTeamScore,
		},
	}
	if status == games.StatusLive {
		game.Clock = parseGameClock(g.Time)
	}
	return game
}

func mapTeam(t teamResponse) teams.Team {
	return teams.Team{
		ID:           fmt.Sprintf("team-%d", t.ID),
		Name:         t.Name,
		FullName:     t.FullName,
		Abbreviation: t.Abbreviation,
		City:         t.City,
	}
}

// mapStatus folds the upstream free-form status into the three lifecycle states.
// Scheduled games carry their tip-off time as status, so anything unrecognized
// before the first period is scheduled.
func mapStatus(status string, period int) games.GameStatus {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case strings.HasPrefix(s, "final"), s == "ended":
		return games.StatusFinal
	case strings.Contains(s, "qtr"), strings.Contains(s, "halftime"), strings.Contains(s, "in progress"),
		strings.Contains(s, "end of period"), strings.HasPrefix(s, "ot"):
		return games.StatusLive
	case period > 0:
		return games.StatusLive
	default:
		return games.StatusScheduled
	}
}

// parseGameClock extracts "M:SS" from values like "Q3 5:23".
func parseGameClock(raw string) string {
	fields := strings.Fields(raw)
	for i := len(fields) - 1; i >= 0; i-- {
		if strings.Contains(fields[i], ":") {
			return fields[i]
		}
	}
	return ""
}

type teamSides struct {
	home int
	away int
}

// mapPlays converts the upstream stream. Side comes from the team id when the game's
// teams are known, otherwise from which score moved.
func mapPlays(gameID string, plays []playResponse, sides *teamSides) []games.PlayEvent {
	out := make([]games.PlayEvent, 0, len(plays))
	prev := games.Score{}
	for _, p := range plays {
		after := games.Score{Home: p.HomeScore, Away: p.AwayScore}
		ev := games.PlayEvent{
			GameID:      gameID,
			Sequence:    p.Order,
			Period:      p.Period,
			Clock:       strings.TrimSpace(p.Clock),
			Action:      mapAction(p),
			Description: strings.TrimSpace(p.Text),
			Score:       after,
		}
		if p.Team != nil {
			ev.TeamID = fmt.Sprintf("team-%d", p.Team.ID)
		}
		ev.Side = resolveSide(p, sides, prev, after)
		if ev.Action == games.ActionMadeShot || ev.Action == games.ActionFreeThrowMade {
			ev.Points = p.ScoreValue
			if ev.Points == 0 {
				ev.Points = after.Home + after.Away - prev.Home - prev.Away
			}
		}
		if ev.Action == games.ActionMadeShot || ev.Action == games.ActionMissedShot {
			ev.ShotValue = shotValue(p)
		}
		out = append(out, ev)
		prev = after
	}
	return out
}

func resolveSide(p playResponse, sides *teamSides, before, after games.Score) games.Side {
	if p.Team != nil && sides != nil {
		switch p.Team.ID {
		case sides.home:
			return games.SideHome
		case sides.away:
			return games.SideAway
		}
	}
	switch {
	case after.Home > before.Home && after.Away == before.Away:
		return games.SideHome
	case after.Away > before.Away && after.Home == before.Home:
		return games.SideAway
	default:
		return games.SideNone
	}
}

func mapAction(p playResponse) games.ActionType {
	t := strings.ToLower(p.Type)
	freeThrow := strings.Contains(t, "free throw")
	switch {
	case p.ScoringPlay && freeThrow:
		return games.ActionFreeThrowMade
	case p.ScoringPlay:
		return games.ActionMadeShot
	case p.ShootingPlay && freeThrow:
		return games.ActionFreeThrowMissed
	case p.ShootingPlay:
		return games.ActionMissedShot
	case strings.Contains(t, "rebound"):
		return games.ActionRebound
	case strings.Contains(t, "turnover"), strings.Contains(t, "traveling"), strings.Contains(t, "bad pass"):
		return games.ActionTurnover
	case strings.Contains(t, "foul"):
		return games.ActionFoul
	case strings.Contains(t, "timeout"):
		return games.ActionTimeout
	case strings.Contains(t, "substitution"):
		return games.ActionSubstitution
	case strings.Contains(t, "end period"), strings.Contains(t, "end of"):
		return games.ActionPeriodEnd
	case strings.Contains(t, "start period"), strings.Contains(t, "start of"):
		return games.ActionPeriodStart
	default:
		return games.ParseAction(p.Type)
	}
}

func shotValue(p playResponse) int {
	if p.ScoringPlay && p.ScoreValue > 0 {
		return p.ScoreValue
	}
	text := strings.ToLower(p.Text + " " + p.Type)
	if strings.Contains(text, "three point") || strings.Contains(text, "3pt") {
		return 3
	}
	return 2
}

// upstreamID strips the provider prefix from a game id.
func upstreamID(gameID string) (int, bool) {
	raw := strings.TrimPrefix(gameID, gameIDPrefix)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
