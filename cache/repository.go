package cache

import (
	"context"
	"log/slog"

	"postboard/database"
	"postboard/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository puts a PostCache in front of FindByID. Cache failures are logged
// and the call falls through to the wrapped repository.
type Repository struct {
	database.PostRepository
	cache  PostCache
	logger *slog.Logger
}

var _ database.PostRepository = (*Repository)(nil)

func NewRepository(next database.PostRepository, cache PostCache, logger *slog.Logger) *Repository {
	return &Repository{PostRepository: next, cache: cache, logger: logger}
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	post, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		r.logger.Warn("post cache read failed", "post_id", id.Hex(), "error", err)
	}
	if ok {
		return post, nil
	}

	post, err = r.PostRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, post); err != nil {
		r.logger.Warn("post cache write failed", "post_id", id.Hex(), "error", err)
	}
	return post, nil
}

func (r *Repository) Update(ctx context.Context, id primitive.ObjectID, update models.PostUpdate, expectedVersion int64) (*models.Post, error) {
	post, err := r.PostRepository.Update(ctx, id, update, expectedVersion)
	r.invalidate(ctx, id)
	return post, err
}

func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID, expectedVersion int64) error {
	err := r.PostRepository.Delete(ctx, id, expectedVersion)
	r.invalidate(ctx, id)
	return err
}

// invalidate runs even after a failed write; a conflict means the cached copy is stale.
func (r *Repository) invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := r.cache.Invalidate(ctx, id); err != nil {
		r.logger.Warn("post cache invalidation failed", "post_id", id.Hex(), "error", err)
	}
}
