package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/testutil"
)

func TestNewSweeperRejectsInvalidSchedule(t *testing.T) {
	if _, err := newSweeper("every now and then", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewSweeperAcceptsSecondsAndDescriptors(t *testing.T) {
	for _, spec := range []string{"*/5 * * * * *", "*/1 * * * *", "@every 30s", "@hourly"} {
		if _, err := newSweeper(spec, nil); err != nil {
			t.Fatalf("spec %q: unexpected error %v", spec, err)
		}
	}
}

func TestSweepRunsEveryTaskAndSurvivesPanics(t *testing.T) {
	logger, buf := testutil.NewBufferLogger()
	s, err := newSweeper(defaultSweepSchedule, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ran []string
	s.add("first", func() int { ran = append(ran, "first"); return 2 })
	s.add("broken", func() int { panic("boom") })
	s.add("last", func() int { ran = append(ran, "last"); return 0 })

	s.sweep()

	if len(ran) != 2 || ran[0] != "first" || ran[1] != "last" {
		t.Fatalf("expected tasks around the panic to run, got %v", ran)
	}
	if out := buf.String(); !strings.Contains(out, "sweep removed entries") || !strings.Contains(out, "sweep task panicked") {
		t.Fatalf("expected sweep logs, got %s", out)
	}
}

func TestSweeperRunsOnScheduleAndStops(t *testing.T) {
	s, err := newSweeper("@every 1s", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runs := make(chan struct{}, 4)
	s.add("tick", func() int {
		select {
		case runs <- struct{}{}:
		default:
		}
		return 0
	})

	s.Start()
	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a scheduled sweep")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
}
