package embedding

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Preprocess normalizes text before embedding: control characters are
// stripped, whitespace runs collapse to single spaces, and the result is
// truncated to maxLen bytes at a rune boundary. The cache key is computed
// from this normalized form, so semantically identical inputs share one
// cache entry.
func Preprocess(text string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r) || r == utf8.RuneError:
			// drop
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}

	return truncateRunes(b.String(), maxLen)
}

// truncateRunes cuts s to at most maxLen bytes without splitting a rune.
func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
