package services

import (
	"context"
	"fmt"
	"log/slog"

	"postboard/apperrors"
	"postboard/auth"
	"postboard/database"
	"postboard/events"
	"postboard/models"
	"postboard/slug"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type CreatePostInput struct {
	Title    string
	Content  string
	Category *string
}

// UpdatePostInput holds the fields supplied by the caller. SetCategory is
// true whenever "category" was present in the request, including null.
type UpdatePostInput struct {
	Title       *string
	Content     *string
	Category    *string
	SetCategory bool
}

type ListPostsInput struct {
	Category string
	Page     int
	Limit    int
}

// PostService enforces authorship, slugging and validation around the post repository.
type PostService struct {
	repo      database.PostRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewPostService(repo database.PostRepository, publisher events.Publisher, logger *slog.Logger) *PostService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PostService{repo: repo, publisher: publisher, logger: logger}
}

func (s *PostService) Create(ctx context.Context, actor auth.Identity, in CreatePostInput) (*models.Post, error) {
	if in.Title == "" || in.Content == "" {
		return nil, apperrors.NewValidationError("", "Title and content are required")
	}

	authorID, err := primitive.ObjectIDFromHex(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: identity %q is not an object id", apperrors.ErrInvalidToken, actor.ID)
	}

	post, err := s.repo.Insert(ctx, &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Author:   authorID,
		Category: normalizeCategory(in.Category),
		Slug:     slug.Derive(in.Title),
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewPostEvent(events.PostCreated, *post))
	return post, nil
}

func (s *PostService) List(ctx context.Context, in ListPostsInput) ([]models.Post, error) {
	if in.Page < 1 || in.Limit < 1 {
		return nil, apperrors.NewValidationError("", "page and limit must be positive integers")
	}
	if in.Limit > MaxLimit {
		return nil, apperrors.NewValidationError("", fmt.Sprintf("limit must not exceed %d", MaxLimit))
	}
	return s.repo.FindMany(ctx, models.PostFilter{Category: in.Category}, in.Page, in.Limit)
}

func (s *PostService) Get(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PostService) Update(ctx context.Context, actor auth.Identity, id primitive.ObjectID, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var update models.PostUpdate
	// Empty title or content means "not supplied".
	if in.Title != nil && *in.Title != "" {
		update.Title = in.Title
		derived := slug.Derive(*in.Title)
		update.Slug = &derived
	}
	if in.Content != nil && *in.Content != "" {
		update.Content = in.Content
	}
	if in.SetCategory {
		update.SetCategory = true
		update.Category = normalizeCategory(in.Category)
	}

	if update.IsEmpty() {
		return post, nil
	}

	updated, err := s.repo.Update(ctx, id, update, post.Version)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewPostEvent(events.PostUpdated, *updated))
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, actor auth.Identity, id primitive.ObjectID) error {
	post, err := s.ownedPost(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, post.Version); err != nil {
		return err
	}

	s.publish(ctx, events.NewPostEvent(events.PostDeleted, *post))
	return nil
}

// ownedPost loads the post and checks that actor wrote it.
func (s *PostService) ownedPost(ctx context.Context, actor auth.Identity, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author.Hex() != actor.ID {
		return nil, apperrors.ErrForbidden
	}
	return post, nil
}

// publish happens after the write succeeded, so delivery failures are only logged.
func (s *PostService) publish(ctx context.Context, event events.PostEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish post event", "type", event.Type, "post_id", event.PostID, "error", err)
	}
}

func normalizeCategory(category *string) *string {
	if category == nil || *category == "" {
		return nil
	}
	c := *category
	return &c
}
