package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
)

const postsChannel = "posts_changes"

const watchRetryDelay = 5 * time.Second

type postNotification struct {
	Op string `json:"op"`
	ID string `json:"id"`
}

// WatchPosts listens on the posts_changes channel and publishes one change
// per notification until ctx is cancelled. Lost connections are retried.
func (d *DB) WatchPosts(ctx context.Context, publish func([]domain.PostChange)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.listen(ctx, publish); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("post watcher disconnected, retrying", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(watchRetryDelay):
			}
		}
	}
}

func (d *DB) listen(ctx context.Context, publish func([]domain.PostChange)) error {
	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+postsChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	slog.Info("watching posts", "channel", postsChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var msg postNotification
		if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
			slog.Warn("malformed post notification", "payload", n.Payload, "error", err)
			continue
		}

		change, ok, err := d.resolve(ctx, msg)
		if err != nil {
			slog.Error("failed to resolve post notification", "id", msg.ID, "error", err)
			continue
		}
		if ok {
			publish([]domain.PostChange{change})
		}
	}
}

// resolve turns a notification into a change. Inserts and updates re-read
// the row; if it is already gone, the following DELETE notification covers it.
func (d *DB) resolve(ctx context.Context, msg postNotification) (domain.PostChange, bool, error) {
	switch msg.Op {
	case "DELETE":
		return domain.PostChange{Kind: domain.ChangeRemoved, Post: domain.Post{ID: msg.ID}}, true, nil
	case "INSERT", "UPDATE":
		post, err := d.Posts().GetByID(ctx, msg.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.PostChange{}, false, nil
			}
			return domain.PostChange{}, false, err
		}
		kind := domain.ChangeAdded
		if msg.Op == "UPDATE" {
			kind = domain.ChangeModified
		}
		return domain.PostChange{Kind: kind, Post: *post}, true, nil
	default:
		return domain.PostChange{}, false, nil
	}
}
