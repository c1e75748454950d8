package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/yappaholic/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(
	mux *http.ServeMux,
	auth *service.AuthService,
	profiles *service.ProfileService,
	feed *service.FeedService,
	events *service.SessionHub,
	store Pinger,
	loc *time.Location,
	cookieSecure bool,
) {
	authHandler := NewAuthHandler(auth, feed, cookieSecure)
	feedHandler := NewFeedHandler(auth, feed, profiles, events, loc)
	postHandler := NewPostHandler(feed)
	streamHandler := NewStreamHandler(feed)

	optional := func(h http.HandlerFunc) http.Handler { return OptionalAuth(auth, h) }
	required := func(h http.HandlerFunc) http.Handler { return RequireAuth(auth, h) }
	browser := func(h http.Handler) http.Handler { return BrowserID(cookieSecure, h) }

	mux.HandleFunc("GET /healthz", HandleHealthz(store))

	mux.Handle("GET /", browser(optional(HandleHome)))
	mux.Handle("GET /feed", browser(optional(feedHandler.HandleFeed)))
	mux.Handle("POST /posts", required(postHandler.HandleCreate))
	mux.Handle("DELETE /posts/{id}", required(postHandler.HandleDelete))

	mux.Handle("GET /auth/google", browser(http.HandlerFunc(authHandler.HandleLogin)))
	mux.Handle("GET /auth/google/callback", browser(http.HandlerFunc(authHandler.HandleCallback)))
	mux.Handle("POST /auth/logout", optional(authHandler.HandleLogout))
	mux.Handle("POST /account/delete", required(authHandler.HandleDeleteAccount))

	mux.Handle("GET /api/me", optional(authHandler.HandleMe))
	mux.HandleFunc("GET /api/feed/ws", streamHandler.HandleStream)
}
