package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-bot/internal/config"
)

// Redis holds the connection the outbound command bus publishes on.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis and fails when the server cannot be reached.
// An outbound channel with no gateway subscribed is only logged.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	checkCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(checkCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	subscribers, err := outboundSubscribers(checkCtx, client, cfg.OutboundChannel)
	switch {
	case err != nil:
		logger.Warn("unable to count outbound subscribers", zap.Error(err))
	case subscribers == 0:
		logger.Warn("no gateway subscribed yet; commands are dropped until one connects",
			zap.String("channel", cfg.OutboundChannel))
	default:
		logger.Info("connected to redis",
			zap.String("channel", cfg.OutboundChannel),
			zap.Int64("subscribers", subscribers))
	}
	return &Redis{Client: client}, nil
}

func outboundSubscribers(ctx context.Context, client *redis.Client, channel string) (int64, error) {
	counts, err := client.PubSubNumSub(ctx, channel).Result()
	if err != nil {
		return 0, err
	}
	return counts[channel], nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}
