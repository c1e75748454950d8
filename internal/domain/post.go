package domain

import (
	"context"
	"time"
)

// MaxPostLength is the cap on post text, counted in Unicode code points.
const MaxPostLength = 400

// Post is a single entry on the wall.
type Post struct {
	ID        string
	Author    string
	Text      string
	CreatedAt time.Time
}

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// PostChange is one incremental update of the live feed.
type PostChange struct {
	Kind ChangeKind
	Post Post
}

// PostRepository handles post persistence.
type PostRepository interface {
	// Create stores the post and sets CreatedAt from the store clock.
	Create(ctx context.Context, post *Post) error
	GetByID(ctx context.Context, id string) (*Post, error)
	// List returns every post ordered by creation time, oldest first.
	List(ctx context.Context) ([]Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]Post, error)
	Delete(ctx context.Context, id string) error
	// DeleteMany removes all listed posts in one transaction: either all of
	// them are gone afterwards or none are.
	DeleteMany(ctx context.Context, ids []string) error
}
