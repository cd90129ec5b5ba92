//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../mocks/mock_user_repository.go -package=mocks
package database

import (
	"context"
	"errors"
	"time"

	"postboard/apperrors"
	"postboard/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type MongoUserRepository struct {
	users *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(UsersCollection)}
}

// EnsureIndexes makes usernames unique.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return apperrors.Storage("create user indexes", err)
}

// Create inserts a user. A taken username surfaces as a duplicate key error
// (mongo.IsDuplicateKeyError) wrapped in a StorageError.
func (r *MongoUserRepository) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return nil, apperrors.Storage("insert user", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("find user", err)
	}
	return &user, nil
}
