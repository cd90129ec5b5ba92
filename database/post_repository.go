//go:generate go run go.uber.org/mock/mockgen -source=post_repository.go -destination=../mocks/mock_post_repository.go -package=mocks
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

type PostRepository interface {
	Insert(ctx context.Context, post *models.Post) (*models.Post, error)
	FindMany(ctx context.Context, filter models.PostFilter, page, limit int) ([]models.Post, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.PostUpdate, expectedVersion int64) (*models.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID, expectedVersion int64) error
}

type MongoPostRepository struct {
	posts *mongo.Collection
	now   func() time.Time
}

func NewPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		posts: db.Collection(PostsCollection),
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the indexes backing the listing queries.
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return apperrors.Storage("create post indexes", err)
}

func (r *MongoPostRepository) Insert(ctx context.Context, post *models.Post) (*models.Post, error) {
	stored := *post
	now := r.now()
	stored.ID = primitive.NewObjectID()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Version = 1
	stored.AuthorProfile = nil

	if _, err := r.posts.InsertOne(ctx, stored); err != nil {
		return nil, apperrors.Storage("insert post", err)
	}
	return &stored, nil
}

// FindMany returns one page of posts, newest first, with authors resolved.
func (r *MongoPostRepository) FindMany(ctx context.Context, filter models.PostFilter, page, limit int) ([]models.Post, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	match := bson.D{}
	if filter.Category != "" {
		match = append(match, bson.E{Key: "category", Value: filter.Category})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64((page - 1) * limit)}},
		{{Key: "$limit", Value: int64(limit)}},
	}
	pipeline = append(pipeline, authorLookup()...)

	posts, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Storage("find posts", err)
	}
	return posts, nil
}

func (r *MongoPostRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		{{Key: "$limit", Value: 1}},
	}
	pipeline = append(pipeline, authorLookup()...)

	posts, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Storage("find post", err)
	}
	if len(posts) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &posts[0], nil
}

// Update applies update only if the stored version still equals
// expectedVersion, and bumps the version.
func (r *MongoPostRepository) Update(ctx context.Context, id primitive.ObjectID, update models.PostUpdate, expectedVersion int64) (*models.Post, error) {
	set := bson.M{"updatedAt": r.now()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Slug != nil {
		set["slug"] = *update.Slug
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.SetCategory {
		set["category"] = update.Category
	}

	filter := bson.M{"_id": id, "version": expectedVersion}
	change := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Post
	err := r.posts.FindOneAndUpdate(ctx, filter, change, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrConflict(ctx, id)
	}
	if err != nil {
		return nil, apperrors.Storage("update post", err)
	}
	return &updated, nil
}

func (r *MongoPostRepository) Delete(ctx context.Context, id primitive.ObjectID, expectedVersion int64) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id, "version": expectedVersion})
	if err != nil {
		return apperrors.Storage("delete post", err)
	}
	if res.DeletedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict tells apart a vanished post from one whose version moved.
func (r *MongoPostRepository) missOrConflict(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.posts.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return apperrors.Storage("count post", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return apperrors.ErrConflict
}

func (r *MongoPostRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]models.Post, error) {
	cursor, err := r.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := make([]models.Post, 0)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// authorLookup populates authorProfile with the author's id and username.
func authorLookup() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "authorProfile"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$authorProfile"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "authorProfile.passwordHash", Value: 0},
			{Key: "authorProfile.createdAt", Value: 0},
		}}},
	}
}
