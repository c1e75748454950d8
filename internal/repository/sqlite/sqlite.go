package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/migrations"
	schema "github.com/msomdec/yappaholic/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and hands out the repositories built on it.
type DB struct {
	SqlDB *sql.DB
	clock *clock
}

var _ domain.Database = (*DB)(nil)

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// A single connection serializes writers, which SQLite wants anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db, clock: &clock{}}, nil
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB, schema.FS, migrations.SQLite)
}

// Ping checks that the database file is still usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.SqlDB.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.SqlDB.Close()
}

func (d *DB) Profiles() domain.ProfileRepository {
	return &profileRepo{db: d.SqlDB}
}

func (d *DB) Posts() domain.PostRepository {
	return &postRepo{db: d.SqlDB, clock: d.clock}
}

func (d *DB) Identities() domain.IdentityRepository {
	return &identityRepo{db: d.SqlDB}
}

func (d *DB) Sessions() domain.SessionRepository {
	return &sessionRepo{db: d.SqlDB}
}
