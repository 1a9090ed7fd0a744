// Package sanitize cleans scraped ad-creative text into a JSON-safe,
// printable-ASCII form before it is persisted.
package sanitize

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MinCreativeLen is the minimum cleaned length for a creative to be
// worth storing. Anything shorter is navigation chrome or a fragment.
const MinCreativeLen = 40

// Clean sanitizes a raw creative string. Returns the cleaned string
// and true, or "" and false when the input is rejected (too short
// after cleaning, or not JSON-serializable).
//
// The returned string carries JSON-style escape sequences baked in
// (\" \\ \n \t \f \b \r). Callers must not re-apply JSON string
// escaping before storage; the store writes it verbatim through
// parameterized SQL.
func Clean(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	cleaned := stripControl(raw)
	cleaned = normalizeNewlines(cleaned)
	cleaned = stripSurrogates(cleaned)
	cleaned = escapeJSON(cleaned)
	cleaned = stripNonPrintable(cleaned)
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) < MinCreativeLen {
		zap.L().Debug("sanitize: creative too short after cleaning",
			zap.Int("length", len(cleaned)),
		)
		return "", false
	}

	// Final serialization check. Everything above should guarantee
	// this, but a creative that cannot round-trip is never stored.
	if _, err := json.Marshal(cleaned); err != nil {
		zap.L().Debug("sanitize: JSON validation failed", zap.Error(err))
		return "", false
	}

	return cleaned, true
}

// stripControl removes NUL and C0/C1 control characters, keeping
// tab, newline, and carriage return for the normalization and escape
// steps that follow.
func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeNewlines folds \r\n and lone \r into \n.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// stripSurrogates removes surrogate-range code points and invalid
// UTF-8 sequences so the result can never contain an unpaired
// surrogate after a decode downstream.
func stripSurrogates(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, utf8.RuneError) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == utf8.RuneError || (r >= 0xD800 && r <= 0xDFFF) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// jsonEscaper bakes JSON string escapes into the text itself.
// Backslash first so later escapes are not double-escaped.
var jsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\f", `\f`,
	"\b", `\b`,
	"\r", `\r`,
)

func escapeJSON(s string) string {
	return jsonEscaper.Replace(s)
}

// stripNonPrintable drops anything outside printable ASCII plus the
// whitespace controls. By this point raw \n/\r/\t have been turned
// into escape sequences, so this mainly sheds non-ASCII symbols and
// emoji the ad libraries are full of.
func stripNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 0x20 && r <= 0x7E) || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
