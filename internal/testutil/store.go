package testutil

import (
	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/store"
)

// NewLiveStoreWithGames builds a live store that has already applied list as a scoreboard.
// A nil list leaves the store without a scoreboard.
func NewLiveStoreWithGames(list []games.Game) *store.LiveStore {
	s := store.NewLiveStore(store.Options{})
	if list != nil {
		s.ApplyScoreboard(list)
	}
	return s
}
