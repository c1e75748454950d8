package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation (SQLite, Postgres) owns its own migration files and
// strategy, so the whole store is swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	Profiles() ProfileRepository
	Posts() PostRepository
	Identities() IdentityRepository
	Sessions() SessionRepository
}

// PostWatcher is implemented by stores that can observe post writes made by
// any client, including edits made outside this service. When the database
// implements it, the feed hub is fed from the watcher instead of from the
// service's own writes.
type PostWatcher interface {
	WatchPosts(ctx context.Context, publish func([]PostChange)) error
}
