package fanout

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSubscriber republishes hub payloads on a redis channel so other
// processes can consume them.
type RedisSubscriber struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisSubscriber relays to channel. The client is owned by the caller.
func NewRedisSubscriber(client redis.UniversalClient, channel string) *RedisSubscriber {
	return &RedisSubscriber{client: client, channel: channel}
}

func (r *RedisSubscriber) ID() string { return "redis:" + r.channel }

func (r *RedisSubscriber) Send(ctx context.Context, payload []byte) error {
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Close is a no-op; the client outlives any single relay registration.
func (r *RedisSubscriber) Close() error { return nil }

// NewRedisClient parses url, connects and verifies the server answers PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
