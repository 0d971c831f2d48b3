package cached

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mongo-user-service/internal/adapter/cache"
	domain "mongo-user-service/internal/domain/user"
	"mongo-user-service/internal/usecase/user"
	"mongo-user-service/pkg/logger"
)

// CachedUserRepository implements user.Repository with cache-aside reads.
// It wraps a persistent repository (MongoDB) and a cache implementation.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) user.Repository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// Create delegates to the DB repository.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (primitive.ObjectID, error) {
	return r.dbRepo.Create(ctx, u)
}

// List delegates to the DB repository; the collection scan is never cached.
func (r *CachedUserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.List(ctx)
}

// GetByID retrieves a user by ID using Cache-Aside pattern.
func (r *CachedUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	log := logger.WithContext(ctx, r.log)

	cachedUser, err := r.cache.Get(ctx, id)
	if err != nil {
		log.Warn("cache get error, falling back to database", zap.String("id", id.Hex()), zap.Error(err))
	} else if cachedUser != nil {
		log.Debug("user retrieved from cache", zap.String("id", id.Hex()))
		return cachedUser, nil
	}

	// The version is read before the database so that an update landing in between
	// makes the fill below a no-op. It is part of the flight key so reads issued after
	// an invalidation never join a flight that started before it.
	version, verr := r.cache.Version(ctx, id)
	if verr != nil {
		log.Warn("cache version error, result will not be cached", zap.String("id", id.Hex()), zap.Error(verr))
	}

	// Cache miss - use single-flight to prevent stampede
	flightKey := fmt.Sprintf("%s@%d", cache.Key(id), version)
	result, err, _ := r.group.Do(flightKey, func() (any, error) {
		// joined callers must not fail because the first caller went away
		fillCtx := context.WithoutCancel(ctx)

		u, err := r.dbRepo.GetByID(fillCtx, id)
		if err != nil {
			return nil, err
		}

		if verr == nil {
			if _, err := r.cache.SetIfVersion(fillCtx, u, version); err != nil {
				log.Warn("failed to cache user", zap.String("id", id.Hex()), zap.Error(err))
			}
		}

		return u, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.User), nil
}

// Update updates the user in DB and invalidates the cache.
func (r *CachedUserRepository) Update(ctx context.Context, id primitive.ObjectID, u *domain.User) (*domain.User, error) {
	before, err := r.dbRepo.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id, "update")
	return before, nil
}

// Delete deletes the user from DB and invalidates the cache.
func (r *CachedUserRepository) Delete(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	deleted, err := r.dbRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id, "delete")
	return deleted, nil
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id primitive.ObjectID, op string) {
	if err := r.cache.Delete(ctx, id); err != nil {
		logger.WithContext(ctx, r.log).Warn("failed to invalidate cache after "+op,
			zap.String("id", id.Hex()), zap.Error(err))
	}
}
