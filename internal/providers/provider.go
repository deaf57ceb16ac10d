package providers

import (
	"context"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
)

// ScoreboardProvider fetches the coarse snapshot of today's games.
type ScoreboardProvider interface {
	FetchScoreboard(ctx context.Context) ([]games.Game, error)
}

// EventProvider fetches the play-by-play stream for one game.
// Implementations may return the full stream; callers dedupe by sequence.
type EventProvider interface {
	FetchEvents(ctx context.Context, gameID string) ([]games.PlayEvent, error)
}

// DataProvider combines all provider capabilities.
type DataProvider interface {
	ScoreboardProvider
	EventProvider
}
