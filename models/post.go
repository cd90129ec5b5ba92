package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Category  *string            `bson:"category" json:"category"` // null when not set
	Slug      string             `bson:"slug" json:"slug"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
	Version   int64              `bson:"version" json:"version"`

	// Resolved from the users collection on reads only
	AuthorProfile *AuthorSummary `bson:"authorProfile,omitempty" json:"authorProfile,omitempty"`
}

// AuthorSummary is the public part of a user attached to posts.
type AuthorSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Username string             `bson:"username" json:"username"`
}

// PostFilter narrows a post listing.
type PostFilter struct {
	Category string
}

// PostUpdate carries the mutable fields of a post. Nil means "leave as is".
// Slug is filled by the service whenever Title is set.
type PostUpdate struct {
	Title       *string
	Content     *string
	Category    *string
	SetCategory bool // true when Category was supplied, even as null
	Slug        *string
}

// IsEmpty reports whether the update changes nothing.
func (u PostUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && !u.SetCategory
}
