package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"postboard/apperrors"
	"postboard/cache"
	"postboard/logging"
	"postboard/mocks"
	"postboard/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func newCachedRepository(t *testing.T) (*cache.Repository, *mocks.MockPostRepository, *mocks.MockPostCache) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockPostRepository(ctrl)
	pc := mocks.NewMockPostCache(ctrl)
	return cache.NewRepository(repo, pc, logging.Discard()), repo, pc
}

func TestRepository_FindByID(t *testing.T) {
	post := &models.Post{ID: primitive.NewObjectID(), Title: "cached", Version: 2}

	t.Run("should serve hits without touching the store", func(t *testing.T) {
		r, repo, pc := newCachedRepository(t)
		pc.EXPECT().Get(gomock.Any(), post.ID).Return(post, true, nil)
		repo.EXPECT().FindByID(gomock.Any(), gomock.Any()).Times(0)

		got, err := r.FindByID(context.Background(), post.ID)

		require.NoError(t, err)
		require.Equal(t, post, got)
	})

	t.Run("should fill the cache on a miss", func(t *testing.T) {
		r, repo, pc := newCachedRepository(t)
		gomock.InOrder(
			pc.EXPECT().Get(gomock.Any(), post.ID).Return(nil, false, nil),
			repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil),
			pc.EXPECT().Set(gomock.Any(), post).Return(nil),
		)

		got, err := r.FindByID(context.Background(), post.ID)

		require.NoError(t, err)
		require.Equal(t, post, got)
	})

	t.Run("should fall through when the cache is down", func(t *testing.T) {
		r, repo, pc := newCachedRepository(t)
		pc.EXPECT().Get(gomock.Any(), post.ID).Return(nil, false, errors.New("connection refused"))
		repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil)
		pc.EXPECT().Set(gomock.Any(), post).Return(errors.New("connection refused"))

		got, err := r.FindByID(context.Background(), post.ID)

		require.NoError(t, err)
		require.Equal(t, post, got)
	})

	t.Run("should not cache misses in the store", func(t *testing.T) {
		r, repo, pc := newCachedRepository(t)
		pc.EXPECT().Get(gomock.Any(), post.ID).Return(nil, false, nil)
		repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(nil, apperrors.ErrNotFound)
		pc.EXPECT().Set(gomock.Any(), gomock.Any()).Times(0)

		_, err := r.FindByID(context.Background(), post.ID)

		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestRepository_Writes(t *testing.T) {
	id := primitive.NewObjectID()
	title := "fresh"

	t.Run("should invalidate after an update", func(t *testing.T) {
		r, repo, pc := newCachedRepository(t)
		updated := &models.Post{ID: id, Title: title, Version: 4}
		gomock.InOrder(
			repo.EXPECT().Update(gomock.Any(), id, models.PostUpdate{Title: &title}, int64(3)).Return(updated, nil),
			pc.EXPECT().Invalidate(gomock.Any(), id).Return(nil),
		)

		got, err := r.Update(context.Background(), id, models.PostUpdate{Title: &title}, 3)

		require.NoError(t, err)
		require.Equal(t, updated, got)
	})

	t.Run("should invalidate even when the write conflicts", func(t *testing.T) {
		r, repo, pc := newCachedRepository(t)
		repo.EXPECT().Delete(gomock.Any(), id, int64(3)).Return(apperrors.ErrConflict)
		pc.EXPECT().Invalidate(gomock.Any(), id).Return(nil)

		err := r.Delete(context.Background(), id, 3)

		require.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("should pass inserts straight through", func(t *testing.T) {
		r, repo, _ := newCachedRepository(t)
		post := &models.Post{Title: "new"}
		repo.EXPECT().Insert(gomock.Any(), post).Return(post, nil)

		_, err := r.Insert(context.Background(), post)

		require.NoError(t, err)
	})
}

func TestRedisPostCache_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	pc := cache.NewRedisPostCache(client, 0)
	id := primitive.NewObjectID()

	post, ok, err := pc.Get(context.Background(), id)

	require.Error(t, err)
	require.False(t, ok)
	require.Nil(t, post)
	require.Error(t, pc.Invalidate(context.Background(), id))
}
