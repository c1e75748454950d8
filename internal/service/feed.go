package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/msomdec/yappaholic/internal/domain"
)

// AccountCloser removes the identity behind a user id once their data is gone.
type AccountCloser interface {
	CloseAccount(ctx context.Context, userID string) error
}

// FeedService creates and deletes posts and keeps the hub informed.
type FeedService struct {
	// writeMu pairs each write with its publish when the service feeds the
	// hub itself, so subscribers see changes in store order.
	writeMu sync.Mutex

	posts     domain.PostRepository
	profiles  *ProfileService
	hub       *FeedHub
	accounts  AccountCloser
	selfFeeds bool
}

// FeedOption configures a FeedService.
type FeedOption func(*FeedService)

// WithStoreWatcher tells the service that the store reports its own writes
// to the hub, so the service must not publish them a second time.
func WithStoreWatcher() FeedOption {
	return func(s *FeedService) { s.selfFeeds = false }
}

// NewFeedService creates a FeedService.
func NewFeedService(posts domain.PostRepository, profiles *ProfileService, hub *FeedHub, accounts AccountCloser, opts ...FeedOption) *FeedService {
	s := &FeedService{
		posts:     posts,
		profiles:  profiles,
		hub:       hub,
		accounts:  accounts,
		selfFeeds: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe opens a live view of the feed. See FeedHub.Subscribe.
func (s *FeedService) Subscribe(ctx context.Context) (<-chan []domain.PostChange, error) {
	return s.hub.Subscribe(ctx)
}

// CreatePost normalizes text and stores it as a new post by authorID. An
// empty authorID makes this a no-op returning (nil, nil).
func (s *FeedService) CreatePost(ctx context.Context, authorID, text string) (*domain.Post, error) {
	if authorID == "" {
		return nil, nil
	}

	text = NormalizePostText(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: post text is empty", domain.ErrInvalidInput)
	}

	post := &domain.Post{
		ID:     uuid.NewString(),
		Author: authorID,
		Text:   text,
	}

	defer s.lockWrites()()
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.publish(domain.PostChange{Kind: domain.ChangeAdded, Post: *post})
	return post, nil
}

// CanDelete reports whether viewerID may delete post. It denies whenever
// either profile is missing or cannot be read.
func (s *FeedService) CanDelete(ctx context.Context, post domain.Post, viewerID string) bool {
	if viewerID == "" {
		return false
	}

	actor, err := s.profiles.Get(ctx, viewerID)
	if err != nil {
		slog.Warn("read actor profile for delete check", "user_id", viewerID, "error", err)
		return false
	}
	author, err := s.profiles.Get(ctx, post.Author)
	if err != nil {
		slog.Warn("read author profile for delete check", "user_id", post.Author, "error", err)
		return false
	}
	if !actor.Provisioned || !author.Provisioned {
		return false
	}

	return CanDelete(actor, author)
}

// DeletePost removes the post if viewerID is allowed to at this moment.
// Authorization is evaluated against freshly read data; a denied or
// already-deleted post is a silent no-op.
func (s *FeedService) DeletePost(ctx context.Context, viewerID, postID string) error {
	defer s.lockWrites()()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get post: %w", err)
	}

	if !s.CanDelete(ctx, *post, viewerID) {
		slog.Info("delete denied", "post_id", postID, "user_id", viewerID)
		return nil
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete post: %w", err)
	}

	s.publish(domain.PostChange{Kind: domain.ChangeRemoved, Post: *post})
	return nil
}

// DeleteAccount erases every post by userID in one batch, then the profile,
// then the identity. If closing the identity fails the data stays deleted
// and the error is returned.
func (s *FeedService) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthorized
	}

	if err := s.deleteAllPosts(ctx, userID); err != nil {
		return err
	}

	if err := s.profiles.Delete(ctx, userID); err != nil {
		return err
	}

	if err := s.accounts.CloseAccount(ctx, userID); err != nil {
		slog.Error("account data deleted but identity could not be closed", "user_id", userID, "error", err)
		return fmt.Errorf("close account: %w", err)
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}

func (s *FeedService) deleteAllPosts(ctx context.Context, userID string) error {
	defer s.lockWrites()()

	posts, err := s.posts.ListByAuthor(ctx, userID)
	if err != nil {
		return fmt.Errorf("list posts by author: %w", err)
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	if err := s.posts.DeleteMany(ctx, ids); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}

	removed := make([]domain.PostChange, len(posts))
	for i, p := range posts {
		removed[i] = domain.PostChange{Kind: domain.ChangeRemoved, Post: p}
	}
	s.publish(removed...)
	slog.Info("deleted posts for account", "user_id", userID, "posts", len(posts))
	return nil
}

// lockWrites takes writeMu when the service publishes its own writes and
// returns the matching unlock. With a store watcher the store orders the
// notifications instead.
func (s *FeedService) lockWrites() func() {
	if !s.selfFeeds {
		return func() {}
	}
	s.writeMu.Lock()
	return s.writeMu.Unlock
}

func (s *FeedService) publish(changes ...domain.PostChange) {
	if !s.selfFeeds || len(changes) == 0 {
		return
	}
	s.hub.Publish(changes)
}
