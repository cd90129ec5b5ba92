package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"postboard/apperrors"
	"postboard/auth"
	"postboard/middleware"
	"postboard/models"
	"postboard/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

type PostHandler struct {
	posts  *services.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *services.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type createPostRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category *string `json:"category"`
}

// optionalString tells an absent key apart from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

type updatePostRequest struct {
	Title    *string        `json:"title"`
	Content  *string        `json:"content"`
	Category optionalString `json:"category"`
}

func (h *PostHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req createPostRequest
	// An empty body is an empty post and fails validation below.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.Create(ctx, identity, services.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) List(c *gin.Context) {
	page, errPage := queryInt(c, "page", services.DefaultPage)
	limit, errLimit := queryInt(c, "limit", services.DefaultLimit)
	if errPage != nil || errLimit != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and limit must be positive integers"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	posts, err := h.posts.List(ctx, services.ListPostsInput{
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) Get(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.Get(ctx, id)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}

	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	post, err := h.posts.Update(ctx, identity, id, services.UpdatePostInput{
		Title:       req.Title,
		Content:     req.Content,
		Category:    req.Category.Value,
		SetCategory: req.Category.Set,
	})
	if err != nil {
		h.fail(c, err, "Not authorized to update this post")
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.posts.Delete(ctx, identity, id); err != nil {
		h.fail(c, err, "Not authorized to delete this post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// fail renders the errors a post route expects and hands the rest to the
// error middleware.
func (h *PostHandler) fail(c *gin.Context, err error, forbidden string) {
	var vErr *apperrors.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden})
	case errors.Is(err, apperrors.ErrConflict):
		h.logger.Info("post version conflict", "post_id", c.Param("id"))
		c.JSON(http.StatusConflict, gin.H{"error": "Post was modified concurrently"})
	default:
		_ = c.Error(err)
	}
}

func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		_ = c.Error(apperrors.ErrMissingToken)
	}
	return identity, ok
}

func postID(c *gin.Context) (primitive.ObjectID, bool) {
	raw := c.Param("id")
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: %q", apperrors.ErrInvalidID, raw))
		return primitive.NilObjectID, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, falling back to def when absent.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}
