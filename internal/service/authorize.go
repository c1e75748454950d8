package service

import "github.com/msomdec/yappaholic/internal/domain"

// CanDelete reports whether actor may delete a post written by author: the
// author always may, anyone else only with strictly greater power.
func CanDelete(actor, author domain.Profile) bool {
	if actor.UserID == "" {
		return false
	}
	return actor.UserID == author.UserID || actor.Power > author.Power
}
