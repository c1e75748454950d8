package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/msomdec/yappaholic/internal/config"
	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/handler"
	"github.com/msomdec/yappaholic/internal/identity/google"
	"github.com/msomdec/yappaholic/internal/repository/postgres"
	"github.com/msomdec/yappaholic/internal/repository/redis"
	"github.com/msomdec/yappaholic/internal/repository/sqlite"
	"github.com/msomdec/yappaholic/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	var cache domain.ProfileCache
	if cfg.RedisAddr != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		cache = redis.NewProfileCache(rdb, cfg.ProfileCacheTTL)
		slog.Info("profile cache enabled", "addr", cfg.RedisAddr)
	}

	provider, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL, nil)
	if err != nil {
		slog.Error("failed to set up google sign-in", "error", err)
		os.Exit(1)
	}

	profileService := service.NewProfileService(db.Profiles(), cache)
	sessionHub := service.NewSessionHub()
	authService := service.NewAuthService(provider, db.Identities(), db.Sessions(), profileService, sessionHub, cfg.JWTSecret, cfg.SessionTTL)
	feedHub := service.NewFeedHub(db.Posts())

	var feedOpts []service.FeedOption
	if watcher, ok := db.(domain.PostWatcher); ok {
		feedOpts = append(feedOpts, service.WithStoreWatcher())
		go func() {
			if err := watcher.WatchPosts(ctx, feedHub.Publish); err != nil && ctx.Err() == nil {
				slog.Error("post watcher stopped", "error", err)
			}
		}()
	}
	feedService := service.NewFeedService(db.Posts(), profileService, feedHub, authService, feedOpts...)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, profileService, feedService, sessionHub, db, cfg.Location, cfg.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.RequestID(handler.RequestLogger(handler.SecurityHeaders(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg *config.Config) (domain.Database, error) {
	if cfg.UsePostgres() {
		slog.Info("using postgres store")
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	slog.Info("using sqlite store", "path", cfg.DatabaseURL)
	db, err := sqlite.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return db, nil
}
