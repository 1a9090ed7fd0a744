package adlib

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakePage serves canned text blocks per selector.
type fakePage struct {
	blocks map[string][]string
}

func (p *fakePage) QueryAllText(_ context.Context, selector string) ([]string, error) {
	return p.blocks[selector], nil
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("  a\n\n b\t\tc  "))
	assert.Equal(t, "", collapseWhitespace(" \n\t "))
}

func TestTruncate_RuneSafe(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "hél", truncate("héllo", 3))
	assert.Equal(t, 300, charLen(truncate(strings.Repeat("ü", 400), 300)))
}

func TestDedupeByPrefix_KeepsFirst(t *testing.T) {
	long := strings.Repeat("a", 130)
	got := dedupeByPrefix([]string{long + " first tail", long + " second tail", "distinct block"}, 120)
	require.Len(t, got, 2)
	assert.Equal(t, long+" first tail", got[0])
	assert.Equal(t, "distinct block", got[1])
}

func TestDedupeByPrefix_TruncatesSurvivors(t *testing.T) {
	got := dedupeByPrefix([]string{strings.Repeat("b", 500)}, 120)
	require.Len(t, got, 1)
	assert.Equal(t, 300, charLen(got[0]))
}

func TestParseMeta_LengthAndDedupe(t *testing.T) {
	shared := strings.Repeat("m", 125)
	page := &fakePage{blocks: map[string][]string{
		"div": {
			strings.Repeat("x", 30), // too short
			strings.Repeat("y", 60), // kept
			shared + " tail one",    // kept
			shared + " tail two",    // dupe of previous by 120-prefix
		},
	}}

	ads, err := ParseMeta(context.Background(), page, nil)
	require.NoError(t, err)
	require.Len(t, ads, 2)
	assert.Equal(t, "Meta Advertiser", ads[0].Advertiser)
	assert.Equal(t, strings.Repeat("y", 60), ads[0].Creative)
	assert.True(t, strings.HasPrefix(ads[1].Creative, shared))
}

func TestParseMeta_BoundaryLength(t *testing.T) {
	page := &fakePage{blocks: map[string][]string{
		"div": {strings.Repeat("x", 50), strings.Repeat("y", 51)},
	}}
	ads, err := ParseMeta(context.Background(), page, nil)
	require.NoError(t, err)
	// Exactly 50 chars is not enough; the threshold is strict.
	require.Len(t, ads, 1)
	assert.Equal(t, strings.Repeat("y", 51), ads[0].Creative)
}

func TestParseMeta_KeywordFilter(t *testing.T) {
	page := &fakePage{blocks: map[string][]string{
		"div": {
			"Acme ships a brand new analytics workspace for modern revenue teams today",
			"Unrelated copy about discount furniture that runs well past fifty characters",
		},
	}}

	ads, err := ParseMeta(context.Background(), page, []string{"ACME"})
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Contains(t, ads[0].Creative, "Acme ships")

	// No keywords keeps everything.
	ads, err = ParseMeta(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Len(t, ads, 2)
}

func TestParseLinkedIn_Bounds(t *testing.T) {
	page := &fakePage{blocks: map[string][]string{
		"div": {
			strings.Repeat("a", 120),  // at lower bound: excluded
			strings.Repeat("b", 121),  // kept
			strings.Repeat("c", 999),  // kept, truncated to 300
			strings.Repeat("d", 1000), // at upper bound: excluded
		},
	}}

	ads, err := ParseLinkedIn(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, ads, 2)
	assert.Equal(t, "LinkedIn Advertiser", ads[0].Advertiser)
	assert.Equal(t, strings.Repeat("b", 121), ads[0].Creative)
	assert.Equal(t, 300, charLen(ads[1].Creative))
}

func TestParseLinkedIn_DedupesNestedWrappers(t *testing.T) {
	copyText := strings.Repeat("n", 160)
	page := &fakePage{blocks: map[string][]string{
		"div": {copyText, copyText + " with wrapper chrome around it", copyText},
	}}

	ads, err := ParseLinkedIn(context.Background(), page)
	require.NoError(t, err)
	assert.Len(t, ads, 1)
}

func TestParseGoogle(t *testing.T) {
	page := &fakePage{blocks: map[string][]string{
		"creative-preview": {
			strings.Repeat("g", 40), // at bound: excluded
			strings.Repeat("h", 41), // kept
			"  spaced   out\n\ncreative   copy here that is long enough to pass the bar  ",
			strings.Repeat("i", 400), // kept, truncated
		},
	}}

	ads, err := ParseGoogle(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, ads, 3)
	assert.Equal(t, "Google Advertiser", ads[0].Advertiser)
	assert.Equal(t, strings.Repeat("h", 41), ads[0].Creative)
	assert.Equal(t, "spaced out creative copy here that is long enough to pass the bar", ads[1].Creative)
	assert.Equal(t, 300, charLen(ads[2].Creative))
}

func TestParseGoogle_NoDedupe(t *testing.T) {
	block := strings.Repeat("j", 60)
	page := &fakePage{blocks: map[string][]string{
		"creative-preview": {block, block},
	}}

	ads, err := ParseGoogle(context.Background(), page)
	require.NoError(t, err)
	// Google renders one creative per element; repeats are distinct ads.
	assert.Len(t, ads, 2)
}
