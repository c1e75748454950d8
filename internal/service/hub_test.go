package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/service"
)

func TestFeedHub_SnapshotOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"p1", "p2", "p3"} {
		if err := db.Posts().Create(ctx, &domain.Post{ID: id, Author: "a", Text: id}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	hub := service.NewFeedHub(db.Posts())
	ch, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	snapshot := nextBatch(t, ch)
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(snapshot))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if snapshot[i].Kind != domain.ChangeAdded || snapshot[i].Post.ID != want {
			t.Fatalf("change %d: got %s %s, want added %s", i, snapshot[i].Kind, snapshot[i].Post.ID, want)
		}
	}
}

func TestFeedHub_EmptySnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := service.NewFeedHub(db.Posts()).Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if batch := nextBatch(t, ch); len(batch) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", batch)
	}
}

func TestFeedHub_PublishOrderAcrossSubscribers(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := service.NewFeedHub(db.Posts())

	first, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	second, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	nextBatch(t, first)
	nextBatch(t, second)

	batches := [][]domain.PostChange{
		{{Kind: domain.ChangeAdded, Post: domain.Post{ID: "p1"}}},
		{{Kind: domain.ChangeModified, Post: domain.Post{ID: "p1"}}},
		{{Kind: domain.ChangeRemoved, Post: domain.Post{ID: "p1"}}},
	}
	for _, b := range batches {
		hub.Publish(b)
	}

	for _, ch := range []<-chan []domain.PostChange{first, second} {
		for i, want := range batches {
			got := nextBatch(t, ch)
			if got[0].Kind != want[0].Kind {
				t.Fatalf("batch %d: got %s, want %s", i, got[0].Kind, want[0].Kind)
			}
		}
	}
}

func TestFeedHub_CancelClosesChannel(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	hub := service.NewFeedHub(db.Posts())

	ch, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	nextBatch(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}
}

func TestFeedHub_DropsSlowSubscriber(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := service.NewFeedHub(db.Posts())

	ch, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Never read: the snapshot plus enough batches overflow the buffer.
	for i := 0; i < 200; i++ {
		hub.Publish([]domain.PostChange{{Kind: domain.ChangeAdded, Post: domain.Post{ID: "x"}}})
	}
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("expected slow subscriber dropped, got %d", n)
	}

	// Buffered batches drain, then the channel reports closed.
	for range ch {
	}
}

// slowList holds List open until release is closed.
type slowList struct {
	domain.PostRepository
	listing chan struct{}
	release chan struct{}
}

func (s *slowList) List(ctx context.Context) ([]domain.Post, error) {
	close(s.listing)
	<-s.release
	return s.PostRepository.List(ctx)
}

func TestFeedHub_PublishDoesNotWaitForSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Posts().Create(ctx, &domain.Post{ID: "p1", Author: "a", Text: "old"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	posts := &slowList{PostRepository: db.Posts(), listing: make(chan struct{}), release: make(chan struct{})}
	hub := service.NewFeedHub(posts)

	type result struct {
		ch  <-chan []domain.PostChange
		err error
	}
	subscribed := make(chan result, 1)
	go func() {
		ch, err := hub.Subscribe(ctx)
		subscribed <- result{ch, err}
	}()
	<-posts.listing

	published := make(chan struct{})
	go func() {
		hub.Publish([]domain.PostChange{{Kind: domain.ChangeAdded, Post: domain.Post{ID: "p2", Author: "a"}}})
		close(published)
	}()
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked behind the snapshot query")
	}

	close(posts.release)
	res := <-subscribed
	if res.err != nil {
		t.Fatalf("Subscribe: %v", res.err)
	}

	snapshot := nextBatch(t, res.ch)
	if len(snapshot) != 1 || snapshot[0].Post.ID != "p1" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	held := nextBatch(t, res.ch)
	if len(held) != 1 || held[0].Post.ID != "p2" {
		t.Fatalf("expected the batch published during the snapshot, got %+v", held)
	}
	if n := hub.Subscribers(); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
}

func TestSessionHub_MultipleListeners(t *testing.T) {
	hub := service.NewSessionHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := hub.Listen(ctx)
	b := hub.Listen(ctx)

	ev := domain.SessionEvent{Kind: domain.SessionSignedIn, UserID: "alice", SessionID: "s1"}
	hub.Publish(ev)

	for _, ch := range []<-chan domain.SessionEvent{a, b} {
		select {
		case got := <-ch:
			if got != ev {
				t.Fatalf("got %+v, want %+v", got, ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("listener did not receive event")
		}
	}
}

func TestSessionHub_ListenerStopsOnCancel(t *testing.T) {
	hub := service.NewSessionHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Listen(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener not closed after cancel")
	}

	// Publishing after removal must not panic.
	hub.Publish(domain.SessionEvent{Kind: domain.SessionSignedOut, UserID: "alice"})
}
