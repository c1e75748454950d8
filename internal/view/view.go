// Package view renders the HTML for the wall: the page shell and the
// fragments patched into it over the feed stream. Components live in the
// .templ files; run `templ generate` after editing them.
package view

import (
	"fmt"
	"net/url"
)

// Element ids targeted by feed patches.
const (
	AuthBarID  = "auth-bar"
	ComposerID = "composer"
	PostsID    = "posts"
)

const stylesheet = `<style>
body { font-family: system-ui, sans-serif; max-width: 40rem; margin: 2rem auto; padding: 0 1rem; }
header { display: flex; justify-content: space-between; align-items: center; }
#auth-bar { display: flex; gap: .5rem; align-items: center; }
#composer textarea { width: 100%; min-height: 5rem; box-sizing: border-box; }
#posts { list-style: none; padding: 0; }
.post { border-bottom: 1px solid #ddd; padding: .75rem 0; }
.post-meta { color: #666; font-size: .85rem; display: flex; gap: .5rem; }
.post-text { white-space: pre-wrap; overflow-wrap: anywhere; margin: .25rem 0; }
</style>`

// PostElementID is the DOM id of the card for postID.
func PostElementID(postID string) string {
	return "post-" + postID
}

func deleteAction(postID string) string {
	return fmt.Sprintf("confirm('Delete this post?') && @delete('/posts/%s')", url.PathEscape(postID))
}

// Posts written moments ago may not have a server time yet.
func displayTimestamp(ts string) string {
	if ts == "" {
		return "just now"
	}
	return ts
}
