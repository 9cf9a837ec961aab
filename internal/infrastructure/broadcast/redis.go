package broadcast

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// Redis appends each notification to a per-channel Redis stream, where the
// platform adapters consume it.
type Redis struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedis creates a Redis broadcaster from a URL.
func NewRedis(url, prefix string, log *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisWithClient(redis.NewClient(opts), prefix, log), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, log: log}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// StreamKey returns the stream a channel's notifications are appended to.
func (r *Redis) StreamKey(channel subscription.ChannelRef) string {
	return r.prefix + channel.String()
}

// Broadcast appends message to the stream of every channel in one pipeline.
// Failures are logged.
func (r *Redis) Broadcast(ctx context.Context, channels []subscription.ChannelRef, message string) {
	if len(channels) == 0 {
		return
	}

	pipe := r.client.Pipeline()
	for _, c := range channels {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.StreamKey(c),
			Values: map[string]any{
				"channel": c.String(),
				"message": message,
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("broadcast failed", zap.Int("channels", len(channels)), zap.Error(err))
	}
}
