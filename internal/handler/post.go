package handler

import (
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/yappaholic/internal/service"
)

// PostHandler handles composing and deleting posts.
type PostHandler struct {
	feed *service.FeedService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(feed *service.FeedService) *PostHandler {
	return &PostHandler{feed: feed}
}

type composeSignals struct {
	Draft string `json:"draft"`
}

// HandleCreate posts the compose box. If normalizing the draft would change
// what the user sees, the normalized text is put back in the box and
// nothing is sent, so the user always posts exactly what was shown.
// POST /posts
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if viewer == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var signals composeSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	text, changed := service.ComposeDraft(signals.Draft)
	sse := datastar.NewSSE(w, r)
	if changed {
		sse.MarshalAndPatchSignals(composeSignals{Draft: text})
		return
	}
	if text == "" {
		return
	}

	if _, err := h.feed.CreatePost(r.Context(), viewer.UserID, text); err != nil {
		slog.Error("create post", "user_id", viewer.UserID, "error", err)
		sse.ConsoleError(err)
		return
	}
	sse.MarshalAndPatchSignals(composeSignals{Draft: ""})
}

// HandleDelete deletes a post if the viewer may. The browser confirms
// first; a denied delete is silently ignored.
// DELETE /posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if viewer == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.feed.DeletePost(r.Context(), viewer.UserID, id); err != nil {
		slog.Error("delete post", "post_id", id, "error", err)
		sse := datastar.NewSSE(w, r)
		sse.ConsoleError(err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
