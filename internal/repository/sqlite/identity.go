package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
)

// identityRepo implements domain.IdentityRepository using SQLite.
type identityRepo struct {
	db *sql.DB
}

func (r *identityRepo) Upsert(ctx context.Context, identity *domain.Identity) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (user_id, email, name, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   last_login = excluded.last_login`,
		identity.UserID, identity.Email, identity.Name, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	identity.LastLogin = now
	return nil
}

func (r *identityRepo) Get(ctx context.Context, userID string) (*domain.Identity, error) {
	i := &domain.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, name, created_at, last_login FROM identities WHERE user_id = ?`, userID,
	).Scan(&i.UserID, &i.Email, &i.Name, &i.CreatedAt, &i.LastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query identity: %w", err)
	}
	return i, nil
}

// Delete removes the identity; its sessions go with it through the foreign key.
func (r *identityRepo) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM identities WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
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
