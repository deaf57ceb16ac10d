package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/preston-bernstein/nba-live-service/internal/logging"
)

const defaultSweepSchedule = "@every 1m"

// sweepTask is one housekeeping step. run returns how many items it touched.
type sweepTask struct {
	name string
	run  func() int
}

// sweeper runs housekeeping tasks on a cron schedule. Tasks must be added before Start.
type sweeper struct {
	cron   *cron.Cron
	tasks  []sweepTask
	logger *slog.Logger
}

func newSweeper(schedule string, logger *slog.Logger) (*sweeper, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &sweeper{
		cron:   cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *sweeper) add(name string, run func() int) {
	s.tasks = append(s.tasks, sweepTask{name: name, run: run})
}

func (s *sweeper) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep to finish or ctx to expire.
func (s *sweeper) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *sweeper) sweep() {
	for _, task := range s.tasks {
		if n := s.runTask(task); n > 0 {
			logging.Info(s.logger, "sweep removed entries", "task", task.name, logging.FieldCount, n)
		}
	}
}

func (s *sweeper) runTask(task sweepTask) (n int) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(s.logger, "sweep task panicked", fmt.Errorf("%v", r), "task", task.name)
			n = 0
		}
	}()
	return task.run()
}
