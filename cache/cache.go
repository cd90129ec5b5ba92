//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=../mocks/mock_post_cache.go -package=mocks
package cache

import (
	"context"

	"postboard/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostCache stores single posts by id. A miss is reported as (nil, false, nil).
type PostCache interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Post, bool, error)
	Set(ctx context.Context, post *models.Post) error
	Invalidate(ctx context.Context, id primitive.ObjectID) error
}
