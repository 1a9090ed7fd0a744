package adlib

import (
	"regexp"
	"strings"
)

// maxCreativeLen caps every emitted creative.
const maxCreativeLen = 300

var whitespaceRe = regexp.MustCompile(`\s+`)

// collapseWhitespace folds whitespace runs to single spaces and trims.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// charLen is the character count used by all length thresholds.
func charLen(s string) int {
	return len([]rune(s))
}

// prefixKey returns the first n characters of s, the fingerprint the
// dedupe maps key on. Two distinct ads sharing an opening phrase of
// this length collapse into one; ad libraries repeat the same
// creative across many placements.
func prefixKey(s string, n int) string {
	return truncate(s, n)
}

// dedupeByPrefix keeps the first occurrence per prefix fingerprint,
// preserving input order, and truncates survivors to maxCreativeLen.
func dedupeByPrefix(texts []string, prefixLen int) []string {
	seen := make(map[string]bool, len(texts))
	var out []string
	for _, t := range texts {
		key := prefixKey(t, prefixLen)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, truncate(t, maxCreativeLen))
	}
	return out
}
