package di

import (
	"context"
	"fmt"
	"time"

	"mongo-user-service/cmd/api/infrastructure"
	"mongo-user-service/internal/adapter/cache"
	"mongo-user-service/internal/adapter/db/mongodb"
	ginhandler "mongo-user-service/internal/adapter/gin/handler"
	"mongo-user-service/internal/adapter/grpc/middleware"
	"mongo-user-service/internal/adapter/repository/cached"
	"mongo-user-service/internal/config"
	"mongo-user-service/internal/usecase/user"
	redisclient "mongo-user-service/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Mongo         *mongo.Client
	RedisClient   *redisclient.Client
	UserUC        user.Usecase
	RateLimiter   *middleware.RateLimiter
	UserHandler   *ginhandler.UserHandler
	HealthHandler *ginhandler.HealthHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	client, err := infrastructure.NewMongoClient(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(context.Background(), client)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	c := &Container{
		Config:      cfg,
		Logger:      l,
		Mongo:       client,
		RedisClient: rdb,
	}
	c.build()

	return c, nil
}

// build wires repositories, use cases and handlers on top of the opened clients.
func (c *Container) build() {
	cfg, l := c.Config, c.Logger

	var repo user.Repository = mongodb.NewUserRepoMongo(infrastructure.UserCollection(c.Mongo, cfg), l)

	checks := map[string]ginhandler.HealthCheck{
		"mongodb": func(ctx context.Context) error {
			return c.Mongo.Ping(ctx, readpref.Primary())
		},
	}

	var redisRaw *goredis.Client
	if c.RedisClient != nil {
		redisRaw = c.RedisClient.Client

		userCache := cache.NewRedisUserCache(
			redisRaw,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		repo = cached.NewCachedUserRepository(repo, userCache, l)
		checks["redis"] = c.RedisClient.HealthCheck
	}

	c.UserUC = user.New(repo, l)

	c.RateLimiter = middleware.NewRateLimiter(
		redisRaw,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	c.UserHandler = ginhandler.NewUserHandler(c.UserUC, l)
	c.HealthHandler = ginhandler.NewHealthHandler(cfg.Logger.ServiceName, checks, l)
}

// Close closes all resources held by the container
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Disconnect MongoDB
	if c.Mongo != nil {
		if err := infrastructure.CloseDatabase(ctx, c.Mongo); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
