// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Port         string `validate:"required,numeric"`
	DatabaseURL  string `validate:"required"`
	JWTSecret    string `validate:"required,min=32"`
	CookieSecure bool
	SessionTTL   time.Duration `validate:"min=1m"`

	GoogleClientID     string `validate:"required"`
	GoogleClientSecret string `validate:"required"`
	OAuthRedirectURL   string `validate:"required,url"`

	// Empty RedisAddr disables the profile cache.
	RedisAddr       string `validate:"omitempty,hostname_port"`
	RedisPassword   string
	RedisDB         int           `validate:"min=0,max=15"`
	ProfileCacheTTL time.Duration `validate:"min=1s"`

	Timezone string
	Location *time.Location `validate:"required"`
	LogLevel string         `validate:"oneof=debug info warn error"`
}

// UsePostgres reports whether DatabaseURL points at Postgres rather than a
// SQLite file.
func (c *Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads a .env file if one exists, then the environment, and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		DatabaseURL: envOrDefault("DATABASE_URL", "yappaholic.db"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		// Default to secure cookies; disable only for local development.
		CookieSecure: os.Getenv("COOKIE_SECURE") != "false",

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   envOrDefault("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		Timezone: envOrDefault("TIMEZONE", "Local"),
		LogLevel: strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
	}

	cfg.SessionTTL = durationEnv("SESSION_TTL", 720*time.Hour, &errs)
	cfg.ProfileCacheTTL = durationEnv("PROFILE_CACHE_TTL", 5*time.Minute, &errs)
	cfg.RedisDB = intEnv("REDIS_DB", 0, &errs)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	cfg.Location = loc

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
			return nil, errors.Join(errs...)
		}
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func intEnv(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return i
}
