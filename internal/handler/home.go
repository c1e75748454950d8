package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/yappaholic/internal/view"
)

// HandleHome renders the page shell. The feed is streamed in afterwards.
func HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := view.Page(ViewerFromContext(r.Context())).Render(r.Context(), w); err != nil {
		slog.Error("render home", "error", err)
	}
}
