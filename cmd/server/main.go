package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/preston-bernstein/nba-live-service/internal/config"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
	"github.com/preston-bernstein/nba-live-service/internal/server"
)

const (
	appName    = "nba-live-service"
	appVersion = "dev"
)

func main() {
	if os.Getenv("SKIP_SERVER_RUN") == "1" {
		return
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	logger.Info("starting",
		"provider", cfg.Provider,
		"inference", cfg.Inference.Enabled(),
		"redis_relay", cfg.Fanout.RedisURL != "",
		"admin", cfg.AdminToken != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	srv.Run(ctx, stop)
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.NewLogger(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: appName,
		Version: appVersion,
	})
}
