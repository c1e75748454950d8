package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/repository/sqlite"
	"github.com/msomdec/yappaholic/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fakeProvider signs in whoever's code is registered; any other code fails
// the way a cancelled popup or bad grant does.
type fakeProvider struct {
	users map[string]domain.ExternalIdentity
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: map[string]domain.ExternalIdentity{
		"code-alice": {Subject: "alice", Email: "alice@example.com", Name: "Alice"},
		"code-bob":   {Subject: "bob", Email: "bob@example.com", Name: "Bob"},
		"code-carol": {Subject: "carol", Email: "carol@example.com", Name: "Carol"},
	}}
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.test/auth?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*domain.ExternalIdentity, error) {
	u, ok := f.users[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return &u, nil
}

type testApp struct {
	db       *sqlite.DB
	profiles *service.ProfileService
	events   *service.SessionHub
	auth     *service.AuthService
	hub      *service.FeedHub
	feed     *service.FeedService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := newTestDB(t)
	profiles := service.NewProfileService(db.Profiles(), nil)
	events := service.NewSessionHub()
	auth := service.NewAuthService(newFakeProvider(), db.Identities(), db.Sessions(), profiles, events, testJWTSecret, time.Hour)
	hub := service.NewFeedHub(db.Posts())
	feed := service.NewFeedService(db.Posts(), profiles, hub, auth)
	return &testApp{db: db, profiles: profiles, events: events, auth: auth, hub: hub, feed: feed}
}

// signIn completes a login for the user behind code and returns the token.
func (a *testApp) signIn(t *testing.T, code string) (string, *domain.Viewer) {
	t.Helper()
	token, viewer, err := a.auth.CompleteLogin(context.Background(), code, "")
	if err != nil {
		t.Fatalf("CompleteLogin(%s): %v", code, err)
	}
	return token, viewer
}

func (a *testApp) setPower(t *testing.T, userID string, power int) {
	t.Helper()
	_, err := a.db.SqlDB.Exec(`UPDATE profiles SET power = ? WHERE user_id = ?`, power, userID)
	if err != nil {
		t.Fatalf("set power: %v", err)
	}
}

func (a *testApp) post(t *testing.T, authorID, text string) *domain.Post {
	t.Helper()
	p, err := a.feed.CreatePost(context.Background(), authorID, text)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return p
}

// nextBatch waits for one batch on ch.
func nextBatch(t *testing.T, ch <-chan []domain.PostChange) []domain.PostChange {
	t.Helper()
	select {
	case batch, ok := <-ch:
		if !ok {
			t.Fatal("feed channel closed")
		}
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed batch")
	}
	return nil
}
