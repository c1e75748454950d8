package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
)

// postRepo implements domain.PostRepository using SQLite. created_at is
// stored as Unix microseconds so ordering is numeric.
type postRepo struct {
	db    *sql.DB
	clock *clock
}

func (r *postRepo) Create(ctx context.Context, post *domain.Post) error {
	now := r.clock.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author, text, created_at) VALUES (?, ?, ?, ?)`,
		post.ID, post.Author, post.Text, now.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	post.CreatedAt = now
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, author, text, created_at FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (r *postRepo) List(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author, text, created_at FROM posts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

func (r *postRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author, text, created_at FROM posts WHERE author = ? ORDER BY created_at ASC, id ASC`,
		authorID)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return collectPosts(rows)
}

func (r *postRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postRepo) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM posts WHERE id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		p       domain.Post
		created int64
	)
	if err := row.Scan(&p.ID, &p.Author, &p.Text, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMicro(created).UTC()
	return &p, nil
}

func collectPosts(rows *sql.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}
