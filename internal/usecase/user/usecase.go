package user

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	domain "mongo-user-service/internal/domain/user"
	"mongo-user-service/pkg/logger"
)

// Repository defines the interface for user data access operations.
// Every method maps onto a single database operation.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (primitive.ObjectID, error)                  // Insert a new user, returning the generated ID
	List(ctx context.Context) ([]domain.User, error)                                         // Read the whole collection
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)                // Retrieve user by ID
	Update(ctx context.Context, id primitive.ObjectID, u *domain.User) (*domain.User, error) // $set fields, returning the pre-update user
	Delete(ctx context.Context, id primitive.ObjectID) (*domain.User, error)                 // Remove user by ID, returning it
}

// UserUsecase passes requests through to the repository without altering them.
type UserUsecase struct {
	repo Repository  // Repository for data access
	log  *zap.Logger // Logger for structured logging
}

// New creates a new instance of UserUsecase.
func New(r Repository, log *zap.Logger) *UserUsecase {
	return &UserUsecase{repo: r, log: log}
}

// CreateUser inserts the user as received.
func (uc *UserUsecase) CreateUser(ctx context.Context, in *domain.User) (primitive.ObjectID, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user")

	id, err := uc.repo.Create(ctx, in)
	if err != nil {
		log.Error("failed to create user", zap.Error(err))
		return primitive.NilObjectID, err
	}
	return id, nil
}

// ListUsers returns every user in the collection.
func (uc *UserUsecase) ListUsers(ctx context.Context) ([]domain.User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("listing users")

	users, err := uc.repo.List(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

// GetUser retrieves a user by ID.
func (uc *UserUsecase) GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	log := logger.WithContext(ctx, uc.log)

	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		log.Warn("failed to get user", zap.String("id", id.Hex()), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// UpdateUser overwrites the supplied fields and returns the user as it was before.
func (uc *UserUsecase) UpdateUser(ctx context.Context, id primitive.ObjectID, in *domain.User) (*domain.User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("updating user", zap.String("id", id.Hex()))

	before, err := uc.repo.Update(ctx, id, in)
	if err != nil {
		log.Warn("failed to update user", zap.String("id", id.Hex()), zap.Error(err))
		return nil, err
	}
	return before, nil
}

// DeleteUser removes a user and returns the removed record.
func (uc *UserUsecase) DeleteUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.String("id", id.Hex()))

	deleted, err := uc.repo.Delete(ctx, id)
	if err != nil {
		log.Warn("failed to delete user", zap.String("id", id.Hex()), zap.Error(err))
		return nil, err
	}
	return deleted, nil
}
