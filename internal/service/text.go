package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/msomdec/yappaholic/internal/domain"
)

var newlineRuns = regexp.MustCompile(`\n{2,}`)

// NormalizePostText collapses every run of two or more newlines into one and
// truncates the result to domain.MaxPostLength code points. It is idempotent.
func NormalizePostText(text string) string {
	text = newlineRuns.ReplaceAllString(text, "\n")
	if utf8.RuneCountInString(text) > domain.MaxPostLength {
		text = string([]rune(text)[:domain.MaxPostLength])
	}
	return text
}

// ComposeDraft trims and normalizes a draft from the compose box. Surrounding
// whitespace is dropped silently. When normalization would change the trimmed
// text, changed is true and the caller should show the normalized text
// instead of sending it.
func ComposeDraft(draft string) (text string, changed bool) {
	trimmed := strings.TrimSpace(draft)
	text = NormalizePostText(trimmed)
	return text, text != trimmed
}

// UnescapeNewlines turns literal "\n" sequences in stored text into real
// line breaks for display.
func UnescapeNewlines(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}
