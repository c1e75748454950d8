package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/presenter"
	"github.com/msomdec/yappaholic/internal/service"
	"github.com/msomdec/yappaholic/internal/view"
)

// FeedHandler streams the live wall to browsers.
type FeedHandler struct {
	auth     *service.AuthService
	feed     *service.FeedService
	profiles *service.ProfileService
	events   *service.SessionHub
	loc      *time.Location
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(auth *service.AuthService, feed *service.FeedService, profiles *service.ProfileService, events *service.SessionHub, loc *time.Location) *FeedHandler {
	return &FeedHandler{auth: auth, feed: feed, profiles: profiles, events: events, loc: loc}
}

// HandleFeed keeps an SSE stream open for one browser tab. It first sends
// the resolved session state, then the whole wall, then every change as it
// happens. The tab's own sign-out or account deletion is mirrored live, and
// so is a sign-in completed in another tab of the same browser.
// GET /feed
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := ViewerFromContext(ctx)
	browserID := BrowserIDFromContext(ctx)

	sessions := h.events.Listen(ctx)
	changes, err := h.feed.Subscribe(ctx)
	if err != nil {
		slog.Error("subscribe to feed", "error", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := patchSession(sse, viewer); err != nil {
		return
	}

	wall := presenter.NewWall(viewerID(viewer), h.loc, h.profiles, h.feed)
	for {
		select {
		case <-ctx.Done():
			return

		case batch, ok := <-changes:
			if !ok {
				// Dropped for falling behind; the browser reconnects.
				return
			}
			if err := sendPatches(sse, wall.Apply(ctx, batch)); err != nil {
				return
			}

		case ev, ok := <-sessions:
			if !ok {
				return
			}
			switch {
			case endsSession(viewer, ev):
				viewer = nil
			case startsSession(viewer, browserID, ev):
				next, err := h.auth.SessionViewer(ctx, ev.UserID, ev.SessionID)
				if err != nil {
					slog.Warn("follow sign-in from another tab", "user_id", ev.UserID, "error", err)
					continue
				}
				viewer = next
			default:
				continue
			}
			if err := patchSession(sse, viewer); err != nil {
				return
			}
			if err := sendPatches(sse, wall.SetViewer(ctx, viewerID(viewer))); err != nil {
				return
			}
		}
	}
}

func patchSession(sse *datastar.ServerSentEventGenerator, viewer *domain.Viewer) error {
	if err := sse.PatchElementTempl(view.AuthBar(viewer)); err != nil {
		return err
	}
	return sse.PatchElementTempl(view.Composer(viewer))
}

func sendPatches(sse *datastar.ServerSentEventGenerator, patches []presenter.Patch) error {
	for _, p := range patches {
		var err error
		switch p.Kind {
		case presenter.PatchPrepend:
			err = sse.PatchElementTempl(
				view.PostCard(p.Card),
				datastar.WithSelectorID(view.PostsID),
				datastar.WithModePrepend(),
			)
		case presenter.PatchReplace:
			err = sse.PatchElementTempl(view.PostCard(p.Card))
		case presenter.PatchRemove:
			err = sse.RemoveElementByID(view.PostElementID(p.PostID))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// endsSession reports whether ev signs out the session viewer is using.
func endsSession(viewer *domain.Viewer, ev domain.SessionEvent) bool {
	if viewer == nil {
		return false
	}
	switch ev.Kind {
	case domain.SessionSignedOut:
		return ev.SessionID == viewer.SessionID
	case domain.SessionAccountDeleted:
		return ev.UserID == viewer.UserID
	default:
		return false
	}
}

// startsSession reports whether ev is a sign-in from the same browser that
// this tab is not yet showing.
func startsSession(viewer *domain.Viewer, browserID string, ev domain.SessionEvent) bool {
	if ev.Kind != domain.SessionSignedIn || browserID == "" || ev.BrowserID != browserID {
		return false
	}
	return viewer == nil || viewer.SessionID != ev.SessionID
}

func viewerID(viewer *domain.Viewer) string {
	if viewer == nil {
		return ""
	}
	return viewer.UserID
}

var (
	_ presenter.Authors     = (*service.ProfileService)(nil)
	_ presenter.Permissions = (*service.FeedService)(nil)
)
