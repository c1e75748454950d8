package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/msomdec/yappaholic/internal/config"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("GOOGLE_CLIENT_ID", "client-id.apps.googleusercontent.com")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
	for _, key := range []string{"PORT", "DATABASE_URL", "COOKIE_SECURE", "SESSION_TTL", "OAUTH_REDIRECT_URL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "PROFILE_CACHE_TTL", "TIMEZONE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "yappaholic.db" || cfg.UsePostgres() {
		t.Fatalf("expected sqlite default, got %s", cfg.DatabaseURL)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies by default")
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("expected 720h session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.ProfileCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %v", cfg.ProfileCacheTTL)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected cache disabled, got %q", cfg.RedisAddr)
	}
	if cfg.Location == nil {
		t.Fatal("expected a location")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/yap")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.UsePostgres() {
		t.Fatal("expected postgres")
	}
	if cfg.CookieSecure {
		t.Fatal("expected insecure cookies")
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("expected redis db 3, got %d", cfg.RedisDB)
	}
	if cfg.Location.String() != "Europe/Berlin" {
		t.Fatalf("expected Europe/Berlin, got %s", cfg.Location)
	}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Fatalf("expected debug level, got %s", cfg.SlogLevel())
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing secret", "JWT_SECRET", ""},
		{"short secret", "JWT_SECRET", "too-short"},
		{"missing client id", "GOOGLE_CLIENT_ID", ""},
		{"bad port", "PORT", "eighty"},
		{"bad ttl", "SESSION_TTL", "forever"},
		{"tiny ttl", "SESSION_TTL", "1s"},
		{"bad redis db", "REDIS_DB", "99"},
		{"bad redis addr", "REDIS_ADDR", "not an address"},
		{"bad timezone", "TIMEZONE", "Mars/Olympus"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad redirect", "OAUTH_REDIRECT_URL", "not a url"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := config.FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}
