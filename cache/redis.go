package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postboard/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultTTL = 5 * time.Minute

type RedisPostCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPostCache(client *redis.Client, ttl time.Duration) *RedisPostCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPostCache{client: client, ttl: ttl}
}

func postKey(id primitive.ObjectID) string {
	return fmt.Sprintf("post:%s", id.Hex())
}

func (c *RedisPostCache) Get(ctx context.Context, id primitive.ObjectID) (*models.Post, bool, error) {
	raw, err := c.client.Get(ctx, postKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", postKey(id), err)
	}

	var post models.Post
	if err := bson.Unmarshal(raw, &post); err != nil {
		return nil, false, fmt.Errorf("decode cached post %s: %w", id.Hex(), err)
	}
	return &post, true, nil
}

// Set stores the post in its bson form so the cached copy matches what the store returns.
func (c *RedisPostCache) Set(ctx context.Context, post *models.Post) error {
	raw, err := bson.Marshal(post)
	if err != nil {
		return fmt.Errorf("encode post %s: %w", post.ID.Hex(), err)
	}
	return c.client.Set(ctx, postKey(post.ID), raw, c.ttl).Err()
}

func (c *RedisPostCache) Invalidate(ctx context.Context, id primitive.ObjectID) error {
	return c.client.Del(ctx, postKey(id)).Err()
}
