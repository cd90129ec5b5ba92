package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"postboard/apperrors"
	"postboard/auth"
	"postboard/events"
	"postboard/logging"
	"postboard/middleware"
	"postboard/mocks"
	"postboard/models"
	"postboard/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type postFixture struct {
	router *gin.Engine
	repo   *mocks.MockPostRepository
	tokens *auth.TokenService
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockPostRepository(ctrl)
	tokens, err := auth.NewTokenService("handler-secret", time.Hour)
	require.NoError(t, err)

	logger := logging.Discard()
	h := NewPostHandler(services.NewPostService(repo, events.Nop{}, logger), logger)

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger, false))
	router.GET("/api/posts", h.List)
	router.GET("/api/posts/:id", h.Get)
	authed := router.Group("/api/posts", middleware.RequireAuth(tokens))
	authed.POST("", h.Create)
	authed.PUT("/:id", h.Update)
	authed.DELETE("/:id", h.Delete)

	return &postFixture{router: router, repo: repo, tokens: tokens}
}

func (f *postFixture) bearer(t *testing.T, id primitive.ObjectID) string {
	token, err := f.tokens.Issue(auth.Identity{ID: id.Hex(), Username: "user-" + id.Hex()[:4]})
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *postFixture) do(method, path, authorization, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func ownedPost(author primitive.ObjectID) *models.Post {
	return &models.Post{
		ID:        primitive.NewObjectID(),
		Title:     "Mine",
		Content:   "body",
		Author:    author,
		Slug:      "mine",
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}
}

func TestPostHandler_Create(t *testing.T) {
	u1 := primitive.NewObjectID()

	t.Run("should create a post for the caller", func(t *testing.T) {
		req := require.New(t)
		f := newPostFixture(t)
		f.repo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p *models.Post) (*models.Post, error) {
				p.ID = primitive.NewObjectID()
				p.CreatedAt = time.Now().UTC()
				p.Version = 1
				return p, nil
			})

		rec := f.do(http.MethodPost, "/api/posts", f.bearer(t, u1), `{"title":"Hi There","content":"x"}`)

		req.Equal(http.StatusCreated, rec.Code)
		body := jsonBody(t, rec)
		req.Equal(u1.Hex(), body["author"])
		req.Equal("hi-there", body["slug"])
		req.Nil(body["category"])
		req.NotEmpty(body["createdAt"])
	})

	t.Run("should require title and content", func(t *testing.T) {
		f := newPostFixture(t)
		f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)

		rec := f.do(http.MethodPost, "/api/posts", f.bearer(t, u1), `{"title":"Hi There"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Title and content are required", jsonBody(t, rec)["error"])
	})

	t.Run("should treat an empty body as a missing title and content", func(t *testing.T) {
		f := newPostFixture(t)
		f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)

		rec := f.do(http.MethodPost, "/api/posts", f.bearer(t, u1), "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Title and content are required", jsonBody(t, rec)["error"])
	})

	t.Run("should still reject malformed json", func(t *testing.T) {
		f := newPostFixture(t)

		rec := f.do(http.MethodPost, "/api/posts", f.bearer(t, u1), `{"title":`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Invalid request body", jsonBody(t, rec)["error"])
	})

	t.Run("should demand a token", func(t *testing.T) {
		f := newPostFixture(t)

		rec := f.do(http.MethodPost, "/api/posts", "", `{"title":"a","content":"b"}`)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Access token required", jsonBody(t, rec)["message"])
	})

	t.Run("should reject a tampered token", func(t *testing.T) {
		f := newPostFixture(t)

		rec := f.do(http.MethodPost, "/api/posts", f.bearer(t, u1)+"x", `{"title":"a","content":"b"}`)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "Invalid token", jsonBody(t, rec)["message"])
	})
}

func TestPostHandler_List(t *testing.T) {
	t.Run("should page through posts", func(t *testing.T) {
		req := require.New(t)
		f := newPostFixture(t)
		f.repo.EXPECT().
			FindMany(gomock.Any(), models.PostFilter{Category: "go"}, 2, 2).
			Return([]models.Post{{Title: "third"}, {Title: "fourth"}}, nil)

		rec := f.do(http.MethodGet, "/api/posts?category=go&page=2&limit=2", "", "")

		req.Equal(http.StatusOK, rec.Code)
		var posts []models.Post
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &posts))
		req.Len(posts, 2)
		req.Equal("third", posts[0].Title)
	})

	t.Run("should use defaults and return an empty array", func(t *testing.T) {
		f := newPostFixture(t)
		f.repo.EXPECT().FindMany(gomock.Any(), models.PostFilter{}, 1, 10).Return(nil, nil)

		rec := f.do(http.MethodGet, "/api/posts", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("should refuse oversized pages", func(t *testing.T) {
		f := newPostFixture(t)
		f.repo.EXPECT().FindMany(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rec := f.do(http.MethodGet, "/api/posts?limit=200", "", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "limit must not exceed 100", jsonBody(t, rec)["error"])
	})

	t.Run("should reject bad paging values", func(t *testing.T) {
		for _, q := range []string{"page=abc", "limit=0", "page=-1"} {
			f := newPostFixture(t)
			rec := f.do(http.MethodGet, "/api/posts?"+q, "", "")
			require.Equal(t, http.StatusBadRequest, rec.Code, q)
			require.Equal(t, "page and limit must be positive integers", jsonBody(t, rec)["error"])
		}
	})
}

func TestPostHandler_Get(t *testing.T) {
	t.Run("should return the post", func(t *testing.T) {
		f := newPostFixture(t)
		post := ownedPost(primitive.NewObjectID())
		post.AuthorProfile = &models.AuthorSummary{ID: post.Author, Username: "alice"}
		f.repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil)

		rec := f.do(http.MethodGet, "/api/posts/"+post.ID.Hex(), "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", jsonBody(t, rec)["authorProfile"].(map[string]any)["username"])
	})

	t.Run("should map a malformed id to the envelope", func(t *testing.T) {
		f := newPostFixture(t)

		rec := f.do(http.MethodGet, "/api/posts/not-an-id", "", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, map[string]any{"success": false, "message": "Invalid ID format"}, jsonBody(t, rec))
	})

	t.Run("should report missing posts", func(t *testing.T) {
		f := newPostFixture(t)
		id := primitive.NewObjectID()
		f.repo.EXPECT().FindByID(gomock.Any(), id).Return(nil, apperrors.ErrNotFound)

		rec := f.do(http.MethodGet, "/api/posts/"+id.Hex(), "", "")

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "Post not found", jsonBody(t, rec)["error"])
	})
}

func TestPostHandler_Update(t *testing.T) {
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()

	t.Run("should update the owner's post", func(t *testing.T) {
		req := require.New(t)
		f := newPostFixture(t)
		post := ownedPost(u1)
		f.repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil)
		f.repo.EXPECT().
			Update(gomock.Any(), post.ID, gomock.Any(), int64(1)).
			DoAndReturn(func(_ context.Context, _ primitive.ObjectID, u models.PostUpdate, _ int64) (*models.Post, error) {
				req.True(u.SetCategory)
				req.Nil(u.Category)
				updated := *post
				updated.Title, updated.Slug, updated.Version = *u.Title, *u.Slug, 2
				return &updated, nil
			})

		rec := f.do(http.MethodPut, "/api/posts/"+post.ID.Hex(), f.bearer(t, u1), `{"title":"New Title","category":null}`)

		req.Equal(http.StatusOK, rec.Code)
		body := jsonBody(t, rec)
		req.Equal("new-title", body["slug"])
		req.Equal("body", body["content"])
	})

	t.Run("should forbid other users", func(t *testing.T) {
		f := newPostFixture(t)
		post := ownedPost(u1)
		f.repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil)
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rec := f.do(http.MethodPut, "/api/posts/"+post.ID.Hex(), f.bearer(t, u2), `{"title":"Hijack"}`)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "Not authorized to update this post", jsonBody(t, rec)["error"])
	})

	t.Run("should report a concurrent modification", func(t *testing.T) {
		f := newPostFixture(t)
		post := ownedPost(u1)
		f.repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil)
		f.repo.EXPECT().Update(gomock.Any(), post.ID, gomock.Any(), int64(1)).Return(nil, apperrors.ErrConflict)

		rec := f.do(http.MethodPut, "/api/posts/"+post.ID.Hex(), f.bearer(t, u1), `{"content":"late"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "Post was modified concurrently", jsonBody(t, rec)["error"])
	})
}

func TestPostHandler_Delete(t *testing.T) {
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()

	t.Run("should delete the owner's post", func(t *testing.T) {
		f := newPostFixture(t)
		post := ownedPost(u1)
		f.repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil)
		f.repo.EXPECT().Delete(gomock.Any(), post.ID, int64(1)).Return(nil)

		rec := f.do(http.MethodDelete, "/api/posts/"+post.ID.Hex(), f.bearer(t, u1), "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Post deleted successfully", jsonBody(t, rec)["message"])
	})

	t.Run("should forbid other users", func(t *testing.T) {
		f := newPostFixture(t)
		post := ownedPost(u1)
		f.repo.EXPECT().FindByID(gomock.Any(), post.ID).Return(post, nil)

		rec := f.do(http.MethodDelete, "/api/posts/"+post.ID.Hex(), f.bearer(t, u2), "")

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "Not authorized to delete this post", jsonBody(t, rec)["error"])
	})

	t.Run("should report a nonexistent id", func(t *testing.T) {
		f := newPostFixture(t)
		id := primitive.NewObjectID()
		f.repo.EXPECT().FindByID(gomock.Any(), id).Return(nil, apperrors.ErrNotFound)

		rec := f.do(http.MethodDelete, "/api/posts/"+id.Hex(), f.bearer(t, u1), "")

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
