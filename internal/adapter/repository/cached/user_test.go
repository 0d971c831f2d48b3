package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"mongo-user-service/internal/adapter/cache"
	domain "mongo-user-service/internal/domain/user"
	pkgerrors "mongo-user-service/pkg/errors"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id primitive.ObjectID, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func setup(t *testing.T) (*CachedUserRepository, *MockRepository, cache.UserCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	userCache := cache.NewRedisUserCache(client, time.Minute, log)
	dbRepo := new(MockRepository)
	repo := NewCachedUserRepository(dbRepo, userCache, log).(*CachedUserRepository)
	return repo, dbRepo, userCache, mr
}

func TestGetByID_CacheMissThenHit(t *testing.T) {
	repo, dbRepo, _, _ := setup(t)
	ctx := context.Background()
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Ana"}

	dbRepo.On("GetByID", mock.Anything, u.ID).Return(u, nil).Once()

	first, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, first)

	second, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *second)

	dbRepo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestGetByID_NotFoundIsNotCached(t *testing.T) {
	repo, dbRepo, _, mr := setup(t)
	ctx := context.Background()
	id := primitive.NewObjectID()

	dbRepo.On("GetByID", mock.Anything, id).Return(nil, pkgerrors.NewNotFoundError("user", ""))

	_, err := repo.GetByID(ctx, id)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.False(t, mr.Exists(cache.Key(id)))
}

func TestGetByID_CacheDownFallsBackToDatabase(t *testing.T) {
	repo, dbRepo, _, mr := setup(t)
	ctx := context.Background()
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Ana"}
	mr.Close()

	dbRepo.On("GetByID", mock.Anything, u.ID).Return(u, nil)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestGetByID_SingleFlight(t *testing.T) {
	repo, dbRepo, _, _ := setup(t)
	ctx := context.Background()
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Ana"}

	release := make(chan struct{})
	dbRepo.On("GetByID", mock.Anything, u.ID).
		Run(func(mock.Arguments) { <-release }).
		Return(u, nil)

	const callers = 5
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			got, err := repo.GetByID(ctx, u.ID)
			assert.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	calls := 0
	for _, c := range dbRepo.Calls {
		if c.Method == "GetByID" {
			calls++
		}
	}
	assert.GreaterOrEqual(t, calls, 1)
	assert.Less(t, calls, callers)
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	repo, dbRepo, userCache, mr := setup(t)
	ctx := context.Background()
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Ana"}
	require.NoError(t, userCache.Set(ctx, u))

	in := &domain.User{Name: "Ana B"}
	dbRepo.On("Update", mock.Anything, u.ID, in).Return(u, nil)

	before, err := repo.Update(ctx, u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Ana", before.Name)
	assert.False(t, mr.Exists(cache.Key(u.ID)))
}

func TestUpdate_ErrorKeepsCache(t *testing.T) {
	repo, dbRepo, userCache, mr := setup(t)
	ctx := context.Background()
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Ana"}
	require.NoError(t, userCache.Set(ctx, u))

	dbRepo.On("Update", mock.Anything, u.ID, mock.Anything).Return(nil, errors.New("boom"))

	_, err := repo.Update(ctx, u.ID, &domain.User{Name: "x"})
	require.Error(t, err)
	assert.True(t, mr.Exists(cache.Key(u.ID)))
}

func TestDelete_InvalidatesCache(t *testing.T) {
	repo, dbRepo, userCache, mr := setup(t)
	ctx := context.Background()
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Ana"}
	require.NoError(t, userCache.Set(ctx, u))

	dbRepo.On("Delete", mock.Anything, u.ID).Return(u, nil)

	deleted, err := repo.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, deleted)
	assert.False(t, mr.Exists(cache.Key(u.ID)))
}

func TestCreateAndList_Delegate(t *testing.T) {
	repo, dbRepo, _, _ := setup(t)
	ctx := context.Background()
	in := &domain.User{Name: "Ana"}
	id := primitive.NewObjectID()

	dbRepo.On("Create", ctx, in).Return(id, nil)
	dbRepo.On("List", ctx).Return([]domain.User{{ID: id, Name: "Ana"}}, nil)

	got, err := repo.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	dbRepo.AssertExpectations(t)
}

// blockFirstRead makes the first GetByID return stale after the caller releases it.
func blockFirstRead(dbRepo *MockRepository, id primitive.ObjectID, stale *domain.User) (entered, release chan struct{}) {
	entered = make(chan struct{})
	release = make(chan struct{})
	dbRepo.On("GetByID", mock.Anything, id).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(stale, nil).Once()
	return entered, release
}

func TestGetByID_ReadRacingUpdateIsNotCached(t *testing.T) {
	repo, dbRepo, _, mr := setup(t)
	ctx := context.Background()
	id := primitive.NewObjectID()
	before := &domain.User{ID: id, Name: "Ana"}
	after := &domain.User{ID: id, Name: "Ana B"}
	in := &domain.User{Name: "Ana B"}

	entered, release := blockFirstRead(dbRepo, id, before)
	dbRepo.On("GetByID", mock.Anything, id).Return(after, nil).Once()
	dbRepo.On("Update", mock.Anything, id, in).Return(before, nil).Once()

	done := make(chan *domain.User, 1)
	go func() {
		u, err := repo.GetByID(ctx, id)
		assert.NoError(t, err)
		done <- u
	}()

	<-entered
	_, err := repo.Update(ctx, id, in)
	require.NoError(t, err)

	// a read issued after the update must not join the in-flight one
	fresh, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana B", fresh.Name)

	close(release)
	assert.Equal(t, "Ana", (<-done).Name)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana B", got.Name)

	raw, err := mr.Get(cache.Key(id))
	require.NoError(t, err)
	assert.Contains(t, raw, `"Ana B"`)
	dbRepo.AssertExpectations(t)
}

func TestGetByID_ReadRacingDeleteIsNotCached(t *testing.T) {
	repo, dbRepo, _, mr := setup(t)
	ctx := context.Background()
	id := primitive.NewObjectID()
	u := &domain.User{ID: id, Name: "Ana"}

	entered, release := blockFirstRead(dbRepo, id, u)
	dbRepo.On("Delete", mock.Anything, id).Return(u, nil).Once()
	dbRepo.On("GetByID", mock.Anything, id).Return(nil, pkgerrors.NewNotFoundError("user", "")).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := repo.GetByID(ctx, id)
		assert.NoError(t, err)
	}()

	<-entered
	_, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	close(release)
	<-done

	assert.False(t, mr.Exists(cache.Key(id)))
	_, err = repo.GetByID(ctx, id)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGetByID_CanceledCallerDoesNotCancelRead(t *testing.T) {
	repo, dbRepo, _, _ := setup(t)
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Ana"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dbRepo.On("GetByID", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), u.ID).Return(u, nil).Once()

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	dbRepo.AssertExpectations(t)
}
