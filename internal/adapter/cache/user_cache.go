package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	domain "mongo-user-service/internal/domain/user"
)

// UserCache defines the interface for user caching operations.
type UserCache interface {
	// Get retrieves a user from cache by ID.
	// Returns nil if user is not found in cache.
	Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error)

	// Set stores a user in cache with the configured TTL.
	Set(ctx context.Context, user *domain.User) error

	// Version returns the invalidation counter of a user; 0 when never invalidated.
	Version(ctx context.Context, id primitive.ObjectID) (int64, error)

	// SetIfVersion stores a user only if its invalidation counter still equals version.
	// It reports whether the entry was written.
	SetIfVersion(ctx context.Context, user *domain.User, version int64) (bool, error)

	// Delete removes a user from cache by ID and bumps its invalidation counter.
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// versionTTL bounds how long an invalidation counter outlives its last write.
const versionTTL = 24 * time.Hour

// setIfVersion writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfVersion = redis.NewScript(`
	local current = redis.call('GET', KEYS[2]) or '0'
	if current ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// RedisUserCache implements UserCache using Redis as the backing store.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) UserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Key returns the Redis key holding the user with the given ID.
func Key(id primitive.ObjectID) string {
	return "user:" + id.Hex()
}

// VersionKey returns the Redis key holding the invalidation counter of a user.
func VersionKey(id primitive.ObjectID) string {
	return "user:ver:" + id.Hex()
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	data, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("user_id", id.Hex()))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("user_id", id.Hex()), zap.Error(err))
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("user_id", id.Hex()), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("user_id", id.Hex()))
	return &user, nil
}

// Set stores a user in Redis cache with TTL.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return fmt.Errorf("cannot cache nil user")
	}
	if user.ID.IsZero() {
		return fmt.Errorf("cannot cache user without id")
	}

	data, err := json.Marshal(user)
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, Key(user.ID), data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return err
	}

	c.log.Debug("cached user", zap.String("user_id", user.ID.Hex()), zap.Duration("ttl", c.ttl))
	return nil
}

// Version reads the invalidation counter of a user.
func (c *RedisUserCache) Version(ctx context.Context, id primitive.ObjectID) (int64, error) {
	v, err := c.client.Get(ctx, VersionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.Error("failed to read cache version", zap.String("user_id", id.Hex()), zap.Error(err))
		return 0, err
	}
	return v, nil
}

// SetIfVersion stores a user unless it was invalidated after version was read.
func (c *RedisUserCache) SetIfVersion(ctx context.Context, user *domain.User, version int64) (bool, error) {
	if user == nil || user.ID.IsZero() {
		return false, fmt.Errorf("cannot cache user without id")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return false, err
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{Key(user.ID), VersionKey(user.ID)},
		version, data, c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		c.log.Error("failed to set cache", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return false, err
	}

	if stored == 0 {
		c.log.Debug("skipped stale cache fill", zap.String("user_id", user.ID.Hex()), zap.Int64("version", version))
		return false, nil
	}
	return true, nil
}

// Delete removes a user from Redis cache and bumps its invalidation counter,
// so fills that read the database before this call are discarded.
func (c *RedisUserCache) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, VersionKey(id))
		pipe.Expire(ctx, VersionKey(id), versionTTL)
		pipe.Del(ctx, Key(id))
		return nil
	})
	if err != nil {
		c.log.Error("failed to delete from cache", zap.String("user_id", id.Hex()), zap.Error(err))
		return err
	}

	c.log.Debug("deleted from cache", zap.String("user_id", id.Hex()))
	return nil
}
