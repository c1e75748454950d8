package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msomdec/yappaholic/internal/domain"
)

type identityRepo struct {
	pool *pgxpool.Pool
}

func (r *identityRepo) Upsert(ctx context.Context, identity *domain.Identity) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO identities (user_id, email, name) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   last_login = now()
		 RETURNING created_at, last_login`,
		identity.UserID, identity.Email, identity.Name,
	).Scan(&identity.CreatedAt, &identity.LastLogin)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

func (r *identityRepo) Get(ctx context.Context, userID string) (*domain.Identity, error) {
	i := &domain.Identity{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email, name, created_at, last_login FROM identities WHERE user_id = $1`, userID,
	).Scan(&i.UserID, &i.Email, &i.Name, &i.CreatedAt, &i.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query identity: %w", err)
	}
	return i, nil
}

func (r *identityRepo) Delete(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type sessionRepo struct {
	pool *pgxpool.Pool
}

func (r *sessionRepo) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s := &domain.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteAllByUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
