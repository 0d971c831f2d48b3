package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"mongo-user-service/internal/domain/user"
	pkgerrors "mongo-user-service/pkg/errors"
	"mongo-user-service/pkg/logger"
)

// UserRepoMongo implements the Repository interface on a MongoDB collection.
type UserRepoMongo struct {
	coll *mongo.Collection // users collection, derived from the shared client
	log  *zap.Logger       // Structured logger for database operations
}

// NewUserRepoMongo creates a new instance of UserRepoMongo.
func NewUserRepoMongo(coll *mongo.Collection, log *zap.Logger) *UserRepoMongo {
	return &UserRepoMongo{coll: coll, log: log}
}

// Create inserts a new user document. The identifier is always generated by the driver.
func (r *UserRepoMongo) Create(ctx context.Context, u *user.User) (primitive.ObjectID, error) {
	if u == nil {
		return primitive.NilObjectID, pkgerrors.NewValidationError("user", "user cannot be nil")
	}
	log := logger.WithContext(ctx, r.log)

	doc := *u
	doc.ID = primitive.NilObjectID

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		log.Error("failed to create user in db", zap.Error(err))
		return primitive.NilObjectID, pkgerrors.NewInternalError("failed to create user", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, pkgerrors.NewInternalError("failed to create user",
			fmt.Errorf("unexpected inserted id type %T", res.InsertedID))
	}

	log.Info("user created in db", zap.String("id", id.Hex()))
	return id, nil
}

// List reads the whole collection. A document that fails to decode aborts the scan
// and nothing is returned.
func (r *UserRepoMongo) List(ctx context.Context) ([]user.User, error) {
	log := logger.WithContext(ctx, r.log)

	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		log.Error("failed to open users cursor", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warn("failed to close users cursor", zap.Error(err))
		}
	}()

	users := make([]user.User, 0)
	for cursor.Next(ctx) {
		var u user.User
		if err := cursor.Decode(&u); err != nil {
			log.Error("failed to decode user document", zap.Error(err))
			return nil, pkgerrors.NewInternalError("failed to decode user", err)
		}
		users = append(users, u)
	}
	if err := cursor.Err(); err != nil {
		log.Error("users cursor failed", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}

	return users, nil
}

// GetByID retrieves a single user document by its identifier.
func (r *UserRepoMongo) GetByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	var u user.User
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&u)
	if err != nil {
		return nil, r.mapError(ctx, "failed to get user", id, err)
	}
	return &u, nil
}

// Update overwrites the given fields of a user with $set and returns the document
// as it was before the update.
func (r *UserRepoMongo) Update(ctx context.Context, id primitive.ObjectID, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, pkgerrors.NewValidationError("user", "user cannot be nil")
	}

	fields := *u
	fields.ID = primitive.NilObjectID

	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before user.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: fields}},
		opts,
	).Decode(&before)
	if err != nil {
		return nil, r.mapError(ctx, "failed to update user", id, err)
	}

	logger.WithContext(ctx, r.log).Info("user updated in db", zap.String("id", id.Hex()))
	return &before, nil
}

// Delete removes a user document and returns it.
func (r *UserRepoMongo) Delete(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	var deleted user.User
	err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&deleted)
	if err != nil {
		return nil, r.mapError(ctx, "failed to delete user", id, err)
	}

	logger.WithContext(ctx, r.log).Info("user deleted in db", zap.String("id", id.Hex()))
	return &deleted, nil
}

// mapError turns ErrNoDocuments into a NotFoundError and anything else into an InternalError.
func (r *UserRepoMongo) mapError(ctx context.Context, msg string, id primitive.ObjectID, err error) error {
	log := logger.WithContext(ctx, r.log)
	if errors.Is(err, mongo.ErrNoDocuments) {
		log.Warn("user not found", zap.String("id", id.Hex()))
		return NotFound(id)
	}
	log.Error(msg, zap.String("id", id.Hex()), zap.Error(err))
	return pkgerrors.NewInternalError(msg, err)
}

// NotFound builds the error reported when no document matches id.
func NotFound(id primitive.ObjectID) error {
	return pkgerrors.NewNotFoundError("user", fmt.Sprintf("No user found with id %s", id.Hex()))
}
