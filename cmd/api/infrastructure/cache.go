package infrastructure

import (
	"context"
	"fmt"

	"mongo-user-service/internal/config"
	redisclient "mongo-user-service/pkg/redis"

	"go.uber.org/zap"
)

// NewRedisClient creates a Redis client when REDIS_ENABLED is set; otherwise it returns nil.
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		l.Info("Redis disabled, cache and rate limiter are off")
		return nil, nil
	}

	redisConfig := redisclient.Config{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}

	rdb, err := redisclient.NewClient(ctx, redisConfig, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
