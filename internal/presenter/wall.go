// Package presenter keeps one viewer's on-screen copy of the feed in sync
// with the stream of post changes.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
	"github.com/msomdec/yappaholic/internal/service"
)

// TimestampLayout is how post times are shown.
const TimestampLayout = "Jan 2, 2006 3:04 PM"

// Authors resolves the name shown for a user id.
type Authors interface {
	DisplayName(ctx context.Context, userID string) string
}

// Permissions decides whether a viewer gets a delete control on a post.
type Permissions interface {
	CanDelete(ctx context.Context, post domain.Post, viewerID string) bool
}

// Card is the rendered state of one post.
type Card struct {
	PostID    string
	AuthorID  string
	Author    string
	Timestamp string
	Text      string
	CanDelete bool
}

type PatchKind int

const (
	// PatchPrepend inserts Card at the top of the list.
	PatchPrepend PatchKind = iota
	// PatchReplace swaps the element for PostID with Card in place.
	PatchReplace
	// PatchRemove drops the element for PostID.
	PatchRemove
)

func (k PatchKind) String() string {
	switch k {
	case PatchPrepend:
		return "prepend"
	case PatchReplace:
		return "replace"
	case PatchRemove:
		return "remove"
	default:
		return fmt.Sprintf("PatchKind(%d)", int(k))
	}
}

// Patch is one edit to the on-screen list.
type Patch struct {
	Kind   PatchKind
	PostID string
	Card   Card
}

var errMalformedPost = errors.New("malformed post")

// Wall is the keyed on-screen list for one viewer: post id to rendered card,
// newest first. It is not safe for concurrent use; one goroutine owns it.
type Wall struct {
	viewerID string
	loc      *time.Location
	authors  Authors
	perms    Permissions

	posts map[string]domain.Post
	cards map[string]Card
	order []string

	// Removed ids stay here so a change delivered late cannot bring the
	// post back. Post ids are never reused.
	removed map[string]struct{}
}

// NewWall creates an empty wall for viewerID, which may be empty for an
// anonymous viewer. loc defaults to time.Local.
func NewWall(viewerID string, loc *time.Location, authors Authors, perms Permissions) *Wall {
	if loc == nil {
		loc = time.Local
	}
	return &Wall{
		viewerID: viewerID,
		loc:      loc,
		authors:  authors,
		perms:    perms,
		posts:    make(map[string]domain.Post),
		cards:    make(map[string]Card),
		removed:  make(map[string]struct{}),
	}
}

// Apply folds a batch of changes into the wall and returns the patches that
// bring the screen up to date. A post that cannot be rendered is skipped
// with a warning; the rest of the batch still applies.
func (w *Wall) Apply(ctx context.Context, batch []domain.PostChange) []Patch {
	patches := make([]Patch, 0, len(batch))
	for _, change := range batch {
		if p, ok := w.apply(ctx, change); ok {
			patches = append(patches, p)
		}
	}
	return patches
}

func (w *Wall) apply(ctx context.Context, change domain.PostChange) (Patch, bool) {
	id := change.Post.ID

	if change.Kind == domain.ChangeRemoved {
		if id != "" {
			w.removed[id] = struct{}{}
		}
		if _, shown := w.cards[id]; !shown {
			return Patch{}, false
		}
		delete(w.cards, id)
		delete(w.posts, id)
		w.order = slices.DeleteFunc(w.order, func(s string) bool { return s == id })
		return Patch{Kind: PatchRemove, PostID: id}, true
	}

	if _, gone := w.removed[id]; gone {
		return Patch{}, false
	}

	card, err := w.render(ctx, change.Post)
	if err != nil {
		slog.Warn(fmt.Sprintf("Couldn't show post %q! it's probably corrupt or something, the error below might know more", id), "error", err)
		return Patch{}, false
	}

	w.posts[id] = change.Post
	if _, shown := w.cards[id]; shown {
		w.cards[id] = card
		return Patch{Kind: PatchReplace, PostID: id, Card: card}, true
	}

	w.cards[id] = card
	w.order = slices.Insert(w.order, 0, id)
	return Patch{Kind: PatchPrepend, PostID: id, Card: card}, true
}

// SetViewer switches the wall to a different viewer and re-renders every
// card, since delete controls depend on who is looking.
func (w *Wall) SetViewer(ctx context.Context, viewerID string) []Patch {
	if viewerID == w.viewerID {
		return nil
	}
	w.viewerID = viewerID

	var patches []Patch
	for _, id := range w.order {
		card, err := w.render(ctx, w.posts[id])
		if err != nil {
			continue
		}
		w.cards[id] = card
		patches = append(patches, Patch{Kind: PatchReplace, PostID: id, Card: card})
	}
	return patches
}

// ViewerID returns the viewer the wall is rendered for.
func (w *Wall) ViewerID() string {
	return w.viewerID
}

// Cards returns the cards in on-screen order, newest first.
func (w *Wall) Cards() []Card {
	out := make([]Card, len(w.order))
	for i, id := range w.order {
		out[i] = w.cards[id]
	}
	return out
}

// Len returns the number of cards on screen.
func (w *Wall) Len() int {
	return len(w.order)
}

func (w *Wall) render(ctx context.Context, post domain.Post) (Card, error) {
	if post.ID == "" {
		return Card{}, fmt.Errorf("%w: missing id", errMalformedPost)
	}
	if post.Author == "" {
		return Card{}, fmt.Errorf("%w: missing author", errMalformedPost)
	}

	card := Card{
		PostID:   post.ID,
		AuthorID: post.Author,
		Author:   w.authors.DisplayName(ctx, post.Author),
		Text:     service.UnescapeNewlines(strings.ToValidUTF8(post.Text, "�")),
	}
	if !post.CreatedAt.IsZero() {
		card.Timestamp = post.CreatedAt.In(w.loc).Format(TimestampLayout)
	}
	if w.viewerID != "" {
		card.CanDelete = w.perms.CanDelete(ctx, post, w.viewerID)
	}
	return card, nil
}
