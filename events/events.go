//go:generate go run go.uber.org/mock/mockgen -source=events.go -destination=../mocks/mock_publisher.go -package=mocks
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"postboard/models"
)

type Type string

const (
	PostCreated Type = "post.created"
	PostUpdated Type = "post.updated"
	PostDeleted Type = "post.deleted"
)

// PostEvent describes a change to a post. Post is nil for deletions.
type PostEvent struct {
	Type       Type         `json:"type"`
	PostID     string       `json:"postId"`
	AuthorID   string       `json:"authorId"`
	Post       *models.Post `json:"post,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// Publisher delivers post events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event PostEvent) error
}

func NewPostEvent(t Type, post models.Post) PostEvent {
	ev := PostEvent{
		Type:       t,
		PostID:     post.ID.Hex(),
		AuthorID:   post.Author.Hex(),
		OccurredAt: time.Now().UTC(),
	}
	if t != PostDeleted {
		p := post
		p.AuthorProfile = nil
		ev.Post = &p
	}
	return ev
}

// Fanout publishes to every publisher and joins their failures.
type Fanout struct {
	publishers []Publisher
	logger     *slog.Logger
}

func NewFanout(logger *slog.Logger, publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, event PostEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			f.logger.Warn("post event delivery failed", "type", event.Type, "post_id", event.PostID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, PostEvent) error { return nil }
