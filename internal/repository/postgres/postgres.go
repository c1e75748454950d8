// Package postgres implements the stores on PostgreSQL through pgx.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/migrations"
	schema "github.com/msomdec/yappaholic/internal/repository/postgres/migrations"
)

// DB wraps a pgx pool and hands out the repositories built on it.
type DB struct {
	Pool *pgxpool.Pool
	dsn  string
}

var (
	_ domain.Database    = (*DB)(nil)
	_ domain.PostWatcher = (*DB)(nil)
)

// New connects to Postgres at dsn and verifies the connection.
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool, dsn: dsn}, nil
}

// Migrate applies the embedded schema through database/sql on the pgx
// stdlib driver, sharing the runner with the SQLite store.
func (d *DB) Migrate(ctx context.Context) error {
	db, err := sql.Open("pgx", d.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	return migrations.Run(ctx, db, schema.FS, migrations.Postgres)
}

// Ping checks that a pooled connection answers.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *DB) Close() error {
	d.Pool.Close()
	return nil
}

func (d *DB) Profiles() domain.ProfileRepository {
	return &profileRepo{pool: d.Pool}
}

func (d *DB) Posts() domain.PostRepository {
	return &postRepo{pool: d.Pool}
}

func (d *DB) Identities() domain.IdentityRepository {
	return &identityRepo{pool: d.Pool}
}

func (d *DB) Sessions() domain.SessionRepository {
	return &sessionRepo{pool: d.Pool}
}
