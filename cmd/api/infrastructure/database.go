package infrastructure

import (
	"context"
	"fmt"
	"time"

	"mongo-user-service/internal/config"
	"mongo-user-service/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// NewMongoClient connects to MongoDB and verifies the deployment is reachable.
// The returned client is safe for concurrent use and lives for the whole process.
func NewMongoClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*mongo.Client, error) {
	monitor := logger.NewMongoMonitor(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level)

	timeout := time.Duration(cfg.Mongo.ConnectTimeoutSeconds) * time.Second
	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetMonitor(monitor.CommandMonitor())
	if cfg.Logger.ServiceName != "" {
		opts.SetAppName(cfg.Logger.ServiceName)
	}
	if cfg.Mongo.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.Mongo.MaxPoolSize)
	}
	if cfg.Mongo.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.Mongo.MinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	l.Info("database connected successfully",
		zap.String("database", cfg.Mongo.Database),
		zap.String("collection", cfg.Mongo.Collection),
		zap.Uint64("max_pool_size", cfg.Mongo.MaxPoolSize),
		zap.Uint64("min_pool_size", cfg.Mongo.MinPoolSize),
	)

	return client, nil
}

// UserCollection returns the collection holding user documents.
func UserCollection(client *mongo.Client, cfg *config.Config) *mongo.Collection {
	return client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
}

// CloseDatabase disconnects the client, waiting for in-flight operations until ctx expires.
func CloseDatabase(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
