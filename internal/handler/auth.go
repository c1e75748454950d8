package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler handles sign-in, sign-out and account deletion.
type AuthHandler struct {
	auth         *service.AuthService
	feed         *service.FeedService
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, feed *service.FeedService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, feed: feed, cookieSecure: cookieSecure}
}

// HandleLogin starts the Google sign-in.
// GET /auth/google
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback finishes the sign-in and always lands back on the wall. A
// cancelled or failed sign-in leaves the visitor signed out without an
// error page.
// GET /auth/google/callback
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := h.completeLogin(w, r); err != nil {
		if errors.Is(err, domain.ErrAuthCancelled) {
			slog.Info("sign-in cancelled", "reason", err)
		} else {
			slog.Error("sign-in", "error", err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	state, err := r.Cookie(oauthStateCookie)
	h.clearCookie(w, oauthStateCookie, "/auth/google")

	if reason := q.Get("error"); reason != "" {
		return fmt.Errorf("%w: provider returned %s", domain.ErrAuthCancelled, reason)
	}
	if err != nil || state.Value == "" || state.Value != q.Get("state") {
		return fmt.Errorf("%w: state mismatch", domain.ErrAuthCancelled)
	}

	token, viewer, err := h.auth.CompleteLogin(r.Context(), q.Get("code"), BrowserIDFromContext(r.Context()))
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.auth.SessionTTL().Seconds()),
	})
	slog.Info("signed in", "user_id", viewer.UserID)
	return nil
}

// HandleLogout ends the current session.
// POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), ViewerFromContext(r.Context())); err != nil {
		slog.Error("logout", "error", err)
	}
	h.clearCookie(w, authCookieName, "/")

	sse := datastar.NewSSE(w, r)
	sse.Redirect("/")
}

// HandleDeleteAccount erases the viewer's posts, profile and identity. The
// browser asks for confirmation before calling it.
// POST /account/delete
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if viewer == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.feed.DeleteAccount(r.Context(), viewer.UserID); err != nil {
		slog.Error("delete account", "user_id", viewer.UserID, "error", err)
		sse := datastar.NewSSE(w, r)
		sse.ConsoleError(err)
		return
	}
	h.clearCookie(w, authCookieName, "/")

	sse := datastar.NewSSE(w, r)
	sse.Redirect("/")
}

// HandleMe returns the currently authenticated user.
// GET /api/me
// Response: {"user": {...}} or 401
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if viewer == nil {
		writeError(w, r, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toViewerDTO(viewer),
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
