package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/yappaholic/internal/domain"
)

// profileRepo implements domain.ProfileRepository using SQLite.
type profileRepo struct {
	db *sql.DB
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		name  sql.NullString
		power sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT display_name, power FROM profiles WHERE user_id = ?`, userID,
	).Scan(&name, &power)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}

	return &domain.Profile{
		UserID:      userID,
		DisplayName: name.String,
		Power:       int(power.Int64),
		Provisioned: true,
	}, nil
}

// EnsureDefaults is a single upsert so concurrent session restorations
// cannot race each other into conflicting writes.
func (r *profileRepo) EnsureDefaults(ctx context.Context, userID, displayName string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, display_name, power) VALUES (?, ?, 0)
		 ON CONFLICT (user_id) DO UPDATE SET
		   display_name = COALESCE(NULLIF(profiles.display_name, ''), excluded.display_name),
		   power = COALESCE(profiles.power, excluded.power)`,
		userID, displayName,
	)
	if err != nil {
		return fmt.Errorf("upsert profile defaults: %w", err)
	}
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
