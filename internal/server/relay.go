package server

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/preston-bernstein/nba-live-service/internal/fanout"
	"github.com/preston-bernstein/nba-live-service/internal/logging"
)

var redisClientFactory = fanout.NewRedisClient

// relay republishes every hub message on a redis channel for other instances.
type relay struct {
	hub    *fanout.Hub
	client *redis.Client
	sub    *fanout.RedisSubscriber
	logger *slog.Logger
}

func newRelay(ctx context.Context, url, channel string, hub *fanout.Hub, logger *slog.Logger) (*relay, error) {
	client, err := redisClientFactory(ctx, url)
	if err != nil {
		return nil, err
	}
	return &relay{
		hub:    hub,
		client: client,
		sub:    fanout.NewRedisSubscriber(client, channel),
		logger: logger,
	}, nil
}

// attach registers the relay with the hub unless it is already connected.
// The hub drops subscribers whose sends fail, so the sweeper calls this on every run.
func (r *relay) attach(ctx context.Context) bool {
	if r.hub.Has(r.sub.ID()) {
		return false
	}
	if err := r.hub.Connect(ctx, r.sub); err != nil {
		logging.Warn(r.logger, "redis relay attach failed", logging.FieldSubscriber, r.sub.ID(), "error", err)
		return false
	}
	return true
}

func (r *relay) Close() error {
	r.hub.Disconnect(r.sub.ID())
	return r.client.Close()
}
