package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/msomdec/yappaholic/internal/domain"
)

const subscriberBuffer = 64

// FeedHub fans post changes out to live subscribers. It is safe for
// concurrent use.
type FeedHub struct {
	mu     sync.Mutex
	posts  domain.PostRepository
	subs   map[*feedSubscriber]struct{}
	buffer int
}

type feedSubscriber struct {
	ch chan []domain.PostChange

	// While the snapshot is being read, published batches wait in pending.
	priming bool
	pending [][]domain.PostChange
	dropped bool
}

// NewFeedHub creates a hub that takes subscriber snapshots from posts.
func NewFeedHub(posts domain.PostRepository) *FeedHub {
	return &FeedHub{
		posts:  posts,
		subs:   make(map[*feedSubscriber]struct{}),
		buffer: subscriberBuffer,
	}
}

// Subscribe opens a live view of the feed. The first batch on the returned
// channel is every post, oldest first, as added changes; later batches are
// delivered in publish order. The channel is closed when ctx is done or when
// the subscriber falls too far behind.
//
// The snapshot is read without holding the hub lock. A change published
// while it is read is delivered after it even if the snapshot already
// reflects it, so consumers must apply changes by post id.
func (h *FeedHub) Subscribe(ctx context.Context) (<-chan []domain.PostChange, error) {
	sub := &feedSubscriber{
		ch:      make(chan []domain.PostChange, h.buffer),
		priming: true,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	posts, err := h.posts.List(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		delete(h.subs, sub)
		return nil, fmt.Errorf("load feed snapshot: %w", err)
	}

	snapshot := make([]domain.PostChange, len(posts))
	for i, p := range posts {
		snapshot[i] = domain.PostChange{Kind: domain.ChangeAdded, Post: p}
	}

	// pending never exceeds buffer-1 batches, so this cannot block.
	sub.ch <- snapshot
	for _, batch := range sub.pending {
		sub.ch <- batch
	}
	sub.pending = nil
	sub.priming = false

	if sub.dropped {
		close(sub.ch)
		return sub.ch, nil
	}

	go func() {
		<-ctx.Done()
		h.remove(sub)
	}()

	return sub.ch, nil
}

// Publish delivers a batch to every subscriber without blocking.
func (h *FeedHub) Publish(batch []domain.PostChange) {
	if len(batch) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if sub.priming {
			if len(sub.pending) >= h.buffer-1 {
				slog.Warn("dropping slow feed subscriber")
				delete(h.subs, sub)
				sub.dropped = true
				continue
			}
			sub.pending = append(sub.pending, batch)
			continue
		}

		select {
		case sub.ch <- batch:
		default:
			slog.Warn("dropping slow feed subscriber")
			delete(h.subs, sub)
			close(sub.ch)
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *FeedHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *FeedHub) remove(sub *feedSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}
