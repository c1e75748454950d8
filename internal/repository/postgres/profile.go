package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msomdec/yappaholic/internal/domain"
)

type profileRepo struct {
	pool *pgxpool.Pool
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		name  *string
		power *int
	)
	err := r.pool.QueryRow(ctx,
		`SELECT display_name, power FROM profiles WHERE user_id = $1`, userID,
	).Scan(&name, &power)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}

	p := &domain.Profile{UserID: userID, Provisioned: true}
	if name != nil {
		p.DisplayName = *name
	}
	if power != nil {
		p.Power = *power
	}
	return p, nil
}

func (r *profileRepo) EnsureDefaults(ctx context.Context, userID, displayName string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, display_name, power) VALUES ($1, $2, 0)
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
	if _, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
