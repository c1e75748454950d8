package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthPingTimeout = 2 * time.Second

type healthBody struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// HandleHealthz reports 200 while the store answers and 503 otherwise.
// GET /healthz
func HandleHealthz(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			slog.Warn("health check: store unavailable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "degraded", Store: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, healthBody{Status: "ok", Store: "ok"})
	}
}
