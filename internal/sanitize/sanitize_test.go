package sanitize

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const base = "Launch faster with the marketing platform growing teams actually enjoy using."

func TestClean_PassesPlainText(t *testing.T) {
	got, ok := Clean(base)
	require.True(t, ok)
	assert.Equal(t, base, got)
}

func TestClean_RejectsShortAndEmpty(t *testing.T) {
	for _, in := range []string{"", "short", strings.Repeat("x", MinCreativeLen-1)} {
		_, ok := Clean(in)
		assert.False(t, ok, "input %q", in)
	}

	got, ok := Clean(strings.Repeat("x", MinCreativeLen))
	require.True(t, ok)
	assert.Len(t, got, MinCreativeLen)
}

func TestClean_StripsControlCharacters(t *testing.T) {
	got, ok := Clean("Launch\x00 faster\x01 with the platform\x1b growing teams actually enjoy\x7f using today.")
	require.True(t, ok)
	assert.NotContains(t, got, "\x00")
	assert.NotContains(t, got, "\x1b")
	assert.NotContains(t, got, "\x7f")
	assert.Contains(t, got, "Launch faster")
}

func TestClean_EscapesQuotesAndBackslashes(t *testing.T) {
	got, ok := Clean(`They said "this is the best tool" \ and the numbers seem to back that up.`)
	require.True(t, ok)
	assert.Contains(t, got, `\"this is the best tool\"`)
	assert.Contains(t, got, `\\`)
}

func TestClean_NormalizesAndEscapesNewlines(t *testing.T) {
	got, ok := Clean("First line of the advertisement copy\r\nsecond line of the advertisement copy")
	require.True(t, ok)
	// CRLF folds to \n before escaping, so no \r escape survives.
	assert.Contains(t, got, `\n`)
	assert.NotContains(t, got, `\r`)
	assert.NotContains(t, got, "\n")
}

func TestClean_EscapesTabs(t *testing.T) {
	got, ok := Clean("Column one of the creative\tcolumn two of the creative with more text")
	require.True(t, ok)
	assert.Contains(t, got, `\t`)
	assert.NotContains(t, got, "\t")
}

func TestClean_DropsEmojiAndNonASCII(t *testing.T) {
	got, ok := Clean("🚀 Grow revenue faster — join 10,000 teams élite marketers trust every single day")
	require.True(t, ok)
	for _, r := range got {
		assert.True(t, (r >= 0x20 && r <= 0x7E), "rune %q should be printable ASCII", r)
	}
	assert.Contains(t, got, "Grow revenue faster")
}

func TestClean_DropsInvalidUTF8(t *testing.T) {
	in := "Valid prefix for the advertisement creative " + string([]byte{0xff, 0xfe}) + " and a valid suffix too"
	got, ok := Clean(in)
	require.True(t, ok)
	assert.Contains(t, got, "Valid prefix")
	assert.Contains(t, got, "valid suffix")
}

func TestClean_DropsSurrogateBytes(t *testing.T) {
	// UTF-8-encoded surrogate code point (U+D800). Must never survive
	// into stored text or reappear after a JSON round trip.
	in := "Valid prefix for the advertisement creative " + string([]byte{0xed, 0xa0, 0x80}) + " and a valid suffix too"
	got, ok := Clean(in)
	require.True(t, ok)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	var decoded string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, r := range decoded {
		assert.False(t, r >= 0xD800 && r <= 0xDFFF, "surrogate %U survived", r)
		assert.NotEqual(t, utf8.RuneError, r, "replacement rune survived")
	}
	assert.Contains(t, got, "Valid prefix")
	assert.Contains(t, got, "valid suffix")
}

func TestClean_OutputAlwaysMarshals(t *testing.T) {
	inputs := []string{
		base,
		`Quotes "everywhere" and backslashes \ mixed with newlines` + "\n\n and tabs \t here",
		"🔥🔥🔥 " + base + " 🔥🔥🔥",
	}
	for _, in := range inputs {
		got, ok := Clean(in)
		require.True(t, ok, "input %q", in)
		_, err := json.Marshal(got)
		assert.NoError(t, err)
	}
}

func TestClean_RejectsControlOnly(t *testing.T) {
	_, ok := Clean("\x01\x02\x03\x04")
	assert.False(t, ok)
}
