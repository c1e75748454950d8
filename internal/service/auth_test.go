package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/msomdec/yappaholic/internal/domain"
)

func TestAuthService_CompleteLogin(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := app.events.Listen(ctx)

	token, viewer, err := app.auth.CompleteLogin(ctx, "code-alice", "browser-1")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if viewer.UserID != "alice" || viewer.Email != "alice@example.com" || viewer.SessionID == "" {
		t.Fatalf("unexpected viewer: %+v", viewer)
	}

	profile, err := app.profiles.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get profile: %v", err)
	}
	if !profile.Provisioned || profile.DisplayName == "" || profile.Power != 0 {
		t.Fatalf("expected provisioned defaults, got %+v", profile)
	}
	if viewer.DisplayName != profile.DisplayName {
		t.Fatalf("viewer name %q, profile name %q", viewer.DisplayName, profile.DisplayName)
	}

	select {
	case ev := <-events:
		if ev.Kind != domain.SessionSignedIn || ev.UserID != "alice" || ev.SessionID != viewer.SessionID || ev.BrowserID != "browser-1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no session event")
	}
}

func TestAuthService_CompleteLoginKeepsDisplayName(t *testing.T) {
	app := newTestApp(t)
	_, first := app.signIn(t, "code-bob")
	_, second := app.signIn(t, "code-bob")

	if first.DisplayName != second.DisplayName {
		t.Fatalf("display name changed on re-login: %q -> %q", first.DisplayName, second.DisplayName)
	}
	if first.SessionID == second.SessionID {
		t.Fatal("expected a fresh session per login")
	}
}

func TestAuthService_CompleteLoginCancelled(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	for _, code := range []string{"", "code-unknown"} {
		_, _, err := app.auth.CompleteLogin(ctx, code, "")
		if !errors.Is(err, domain.ErrAuthCancelled) {
			t.Fatalf("code %q: expected ErrAuthCancelled, got %v", code, err)
		}
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	app := newTestApp(t)
	token, viewer := app.signIn(t, "code-alice")

	got, err := app.auth.CurrentUser(context.Background(), token)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if *got != *viewer {
		t.Fatalf("got %+v, want %+v", got, viewer)
	}
}

func TestAuthService_CurrentUserRestoresMissingProfile(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	token, viewer := app.signIn(t, "code-alice")
	post := app.post(t, "alice", "still mine")

	if _, err := app.db.SqlDB.Exec(`DELETE FROM profiles WHERE user_id = ?`, "alice"); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if app.feed.CanDelete(ctx, *post, "alice") {
		t.Fatal("expected denial while the profile is missing")
	}

	got, err := app.auth.CurrentUser(ctx, token)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if got.SessionID != viewer.SessionID || got.DisplayName == "" || got.DisplayName == "alice" {
		t.Fatalf("expected a freshly provisioned name, got %+v", got)
	}

	profile, err := app.profiles.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get profile: %v", err)
	}
	if !profile.Provisioned || profile.Power != 0 {
		t.Fatalf("expected provisioned defaults, got %+v", profile)
	}
	if !app.feed.CanDelete(ctx, *post, "alice") {
		t.Fatal("owner should be able to delete own post after session restore")
	}
}

func TestAuthService_CurrentUserKeepsExistingProfile(t *testing.T) {
	app := newTestApp(t)
	token, viewer := app.signIn(t, "code-alice")
	app.setPower(t, "alice", 7)

	got, err := app.auth.CurrentUser(context.Background(), token)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if got.DisplayName != viewer.DisplayName {
		t.Fatalf("display name changed: %q -> %q", viewer.DisplayName, got.DisplayName)
	}
	profile, err := app.profiles.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Get profile: %v", err)
	}
	if profile.Power != 7 {
		t.Fatalf("expected power kept at 7, got %d", profile.Power)
	}
}

func TestAuthService_SessionViewer(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	_, viewer := app.signIn(t, "code-alice")
	_, bob := app.signIn(t, "code-bob")

	got, err := app.auth.SessionViewer(ctx, "alice", viewer.SessionID)
	if err != nil {
		t.Fatalf("SessionViewer: %v", err)
	}
	if *got != *viewer {
		t.Fatalf("got %+v, want %+v", got, viewer)
	}

	if _, err := app.auth.SessionViewer(ctx, "alice", bob.SessionID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for another user's session, got %v", err)
	}
	if _, err := app.auth.SessionViewer(ctx, "alice", "missing"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown session, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	token, viewer := app.signIn(t, "code-alice")
	events := app.events.Listen(ctx)

	if err := app.auth.Logout(ctx, viewer); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := app.auth.CurrentUser(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != domain.SessionSignedOut || ev.SessionID != viewer.SessionID {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no session event")
	}
}

func TestAuthService_LogoutKeepsOtherSessions(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	laptop, laptopViewer := app.signIn(t, "code-alice")
	phone, _ := app.signIn(t, "code-alice")

	if err := app.auth.Logout(ctx, laptopViewer); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := app.auth.CurrentUser(ctx, laptop); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected laptop session closed, got %v", err)
	}
	if _, err := app.auth.CurrentUser(ctx, phone); err != nil {
		t.Fatalf("expected phone session alive, got %v", err)
	}
}

func TestAuthService_CloseAccount(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	token, _ := app.signIn(t, "code-alice")
	events := app.events.Listen(ctx)

	if err := app.auth.CloseAccount(ctx, "alice"); err != nil {
		t.Fatalf("CloseAccount: %v", err)
	}
	if _, err := app.db.Identities().Get(ctx, "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected identity gone, got %v", err)
	}
	if _, err := app.auth.CurrentUser(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != domain.SessionAccountDeleted || ev.UserID != "alice" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no session event")
	}
}

func TestAuthService_ValidateToken_Invalid(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signIn(t, "code-alice")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-valid-jwt"},
		{"tampered", token[:len(token)-2] + "xx"},
		{"wrong secret", signWith(t, "another-secret-another-secret-123", jwt.MapClaims{"sub": "alice", "sid": "s"})},
		{"missing sid", signWith(t, testJWTSecret, jwt.MapClaims{"sub": "alice"})},
		{"expired", signWith(t, testJWTSecret, jwt.MapClaims{"sub": "alice", "sid": "s", "exp": time.Now().Add(-time.Hour).Unix()})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := app.auth.ValidateToken(tc.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestAuthService_ValidateToken_UnknownSession(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "code-alice")

	forged := signWith(t, testJWTSecret, jwt.MapClaims{
		"sub": "alice",
		"sid": "no-such-session",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := app.auth.CurrentUser(context.Background(), forged); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_AuthCodeURL(t *testing.T) {
	app := newTestApp(t)
	if url := app.auth.AuthCodeURL("xyz"); !strings.Contains(url, "state=xyz") {
		t.Fatalf("state not passed through: %s", url)
	}
}

func signWith(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}
