package testutil

import (
	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/domain/teams"
)

// SampleTeam returns a team fixture with the provided id.
func SampleTeam(id string) teams.Team {
	return teams.Team{
		ID:           id,
		Name:         "Team " + id,
		FullName:     "Sample Team " + id,
		Abbreviation: id,
	}
}

// SampleGame returns a minimal scheduled game fixture with the provided id.
func SampleGame(id string) games.Game {
	return games.Game{
		ID:        id,
		Provider:  "test",
		HomeTeam:  SampleTeam("HOM"),
		AwayTeam:  SampleTeam("AWY"),
		StartTime: "2024-01-01T19:00:00Z",
		Status:    games.StatusScheduled,
	}
}

// SampleLiveGame returns an in-progress game with the given score.
func SampleLiveGame(id string, home, away int) games.Game {
	g := SampleGame(id)
	g.Status = games.StatusLive
	g.Period = 1
	g.Clock = "10:00"
	g.Score = games.Score{Home: home, Away: away}
	return g
}

// SampleEvent returns a made shot by side worth points, ending at the given score.
func SampleEvent(gameID string, seq int64, side games.Side, points int, score games.Score) games.PlayEvent {
	action := games.ActionMadeShot
	if points == 1 {
		action = games.ActionFreeThrowMade
	}
	return games.PlayEvent{
		GameID:    gameID,
		Sequence:  seq,
		Period:    1,
		Clock:     "10:00",
		Side:      side,
		Action:    action,
		Points:    points,
		ShotValue: points,
		Score:     score,
	}
}
