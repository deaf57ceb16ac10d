package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
	"github.com/preston-bernstein/nba-live-service/internal/store"
)

const defaultEventConcurrency = 4

// ScoreboardSink receives whole-scoreboard updates.
type ScoreboardSink interface {
	ApplyScoreboard(list []games.Game) store.Transition
}

// EventSink receives per-game play-by-play.
type EventSink interface {
	LiveGameIDs() []string
	AppendEvents(gameID string, events []games.PlayEvent) int
}

// ScoreboardJob fetches the scoreboard and applies it to sink.
func ScoreboardJob(provider providers.ScoreboardProvider, sink ScoreboardSink, logger *slog.Logger) Job {
	return func(ctx context.Context) (int, error) {
		list, err := provider.FetchScoreboard(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetch scoreboard: %w", err)
		}
		tr := sink.ApplyScoreboard(list)
		for _, id := range tr.Started {
			logging.Info(logger, "game went live", logging.FieldGameID, id)
		}
		for _, id := range tr.Ended {
			logging.Info(logger, "game left live set; event stream evicted", logging.FieldGameID, id)
		}
		return len(list), nil
	}
}

// EventsJob refreshes the stream of every live game with bounded concurrency.
// A failing game is logged and skipped; the job fails only when every game failed.
func EventsJob(provider providers.EventProvider, sink EventSink, logger *slog.Logger, concurrency int) Job {
	if concurrency <= 0 {
		concurrency = defaultEventConcurrency
	}
	return func(ctx context.Context) (int, error) {
		ids := sink.LiveGameIDs()
		if len(ids) == 0 {
			return 0, nil
		}

		var (
			added atomic.Int64
			mu    sync.Mutex
			errs  []error
		)
		g := new(errgroup.Group)
		g.SetLimit(concurrency)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				events, err := provider.FetchEvents(ctx, id)
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					if !errors.Is(err, context.Canceled) {
						logging.Warn(logger, "event fetch failed", logging.FieldGameID, id, "error", err)
					}
					return nil
				}
				added.Add(int64(sink.AppendEvents(id, events)))
				return nil
			})
		}
		_ = g.Wait()

		if len(errs) == len(ids) {
			return 0, fmt.Errorf("fetch events for %d live games: %w", len(ids), errors.Join(errs...))
		}
		return int(added.Load()), nil
	}
}
