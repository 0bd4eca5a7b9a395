package ratelimit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "claimlimit:"

// RedisLimiter is the shared fixed-window implementation for multi-replica
// deployments: all replicas count against the same window.
type RedisLimiter struct {
	config Config
	client *redis.Client
	logger *slog.Logger
}

func NewRedisLimiter(client *redis.Client, config Config, logger *slog.Logger) *RedisLimiter {
	logger.Debug("Initializing Redis claim limiter",
		"window", config.Window,
		"max_attempts", config.MaxAttempts,
	)

	return &RedisLimiter{
		config: config,
		client: client,
		logger: logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := redisKeyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment claim window: %w", err)
	}

	// First call in a window sets its expiry; subsequent calls inherit it.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.config.Window).Err(); err != nil {
			l.logger.Warn("Failed to set claim window expiry", "key", redisKey, "error", err)
		}
	}

	return count <= int64(l.config.MaxAttempts), nil
}

var _ Limiter = (*RedisLimiter)(nil)
