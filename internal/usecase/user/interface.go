package user

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	domain "mongo-user-service/internal/domain/user"
)

// Usecase defines the interface for user operations exposed to transports.
type Usecase interface {
	CreateUser(ctx context.Context, in *domain.User) (primitive.ObjectID, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, in *domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}
