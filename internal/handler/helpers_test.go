package handler_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/handler"
	"github.com/msomdec/yappaholic/internal/repository/sqlite"
	"github.com/msomdec/yappaholic/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

// fakeProvider accepts "code-<user>" for the users it knows.
type fakeProvider struct{}

func (fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.test/auth?state=" + url.QueryEscape(state)
}

func (fakeProvider) Exchange(_ context.Context, code string) (*domain.ExternalIdentity, error) {
	switch code {
	case "code-alice":
		return &domain.ExternalIdentity{Subject: "alice", Email: "alice@example.com", Name: "Alice"}, nil
	case "code-bob":
		return &domain.ExternalIdentity{Subject: "bob", Email: "bob@example.com", Name: "Bob"}, nil
	default:
		return nil, errors.New("invalid_grant")
	}
}

type testEnv struct {
	srv      *httptest.Server
	db       *sqlite.DB
	auth     *service.AuthService
	profiles *service.ProfileService
	feed     *service.FeedService
}

func newTestEnv(t *testing.T) *testEnv {
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

	profiles := service.NewProfileService(db.Profiles(), nil)
	events := service.NewSessionHub()
	auth := service.NewAuthService(fakeProvider{}, db.Identities(), db.Sessions(), profiles, events, testJWTSecret, time.Hour)
	feed := service.NewFeedService(db.Posts(), profiles, service.NewFeedHub(db.Posts()), auth)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, auth, profiles, feed, events, db, time.UTC, false)

	srv := httptest.NewServer(handler.RequestID(handler.SecurityHeaders(mux)))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, db: db, auth: auth, profiles: profiles, feed: feed}
}

// newClient returns a client with its own cookie jar that does not follow
// redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // don't follow redirects automatically
		},
	}
}

// signIn walks the Google sign-in flow with the fake provider.
func (e *testEnv) signIn(t *testing.T, client *http.Client, code string) {
	t.Helper()

	resp, err := client.Get(e.srv.URL + "/auth/google")
	if err != nil {
		t.Fatalf("GET /auth/google: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login: expected 302, got %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	state := loc.Query().Get("state")

	resp, err = client.Get(e.srv.URL + "/auth/google/callback?code=" + code + "&state=" + url.QueryEscape(state))
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("callback: expected 303, got %d", resp.StatusCode)
	}
	if !e.hasCookie(client, "auth_token") {
		t.Fatal("expected auth_token cookie after sign-in")
	}
}

func (e *testEnv) hasCookie(client *http.Client, name string) bool {
	u, _ := url.Parse(e.srv.URL)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}

// do sends a datastar-style request with a JSON signals body.
func (e *testEnv) do(t *testing.T, client *http.Client, method, path, body string) (*http.Response, string) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

// sseStream reads an open event stream line by line in the background.
type sseStream struct {
	lines chan string
}

func openStream(t *testing.T, client *http.Client, url string) *sseStream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("stream: expected 200, got %d", resp.StatusCode)
	}

	s := &sseStream{lines: make(chan string, 1024)}
	go func() {
		defer resp.Body.Close()
		defer close(s.lines)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			s.lines <- sc.Text()
		}
	}()
	return s
}

// waitFor consumes lines until one contains every needle.
func (s *sseStream) waitFor(t *testing.T, needles ...string) string {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				t.Fatalf("stream closed before %q", needles)
			}
			if containsAll(line, needles) {
				return line
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", needles)
		}
	}
}

func containsAll(s string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(s, n) {
			return false
		}
	}
	return true
}
