package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msomdec/yappaholic/internal/domain"
)

type postRepo struct {
	pool *pgxpool.Pool
}

// Create lets the database assign created_at so every replica shares one clock.
func (r *postRepo) Create(ctx context.Context, post *domain.Post) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (id, author, text) VALUES ($1, $2, $3) RETURNING created_at`,
		post.ID, post.Author, post.Text,
	).Scan(&post.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	post.CreatedAt = post.CreatedAt.UTC()
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	p := &domain.Post{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, author, text, created_at FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.Author, &p.Text, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (r *postRepo) List(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, author, text, created_at FROM posts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

func (r *postRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, author, text, created_at FROM posts WHERE author = $1 ORDER BY created_at ASC, id ASC`,
		authorID)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return collectPosts(rows)
}

func (r *postRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postRepo) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func collectPosts(rows pgx.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Author, &p.Text, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
