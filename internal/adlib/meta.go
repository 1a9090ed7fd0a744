package adlib

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/marketingos/adsurv-cli/internal/model"
)

const (
	metaSelector   = "div"
	metaMinLen     = 50
	metaPrefixLen  = 120
	metaAdvertiser = "Meta Advertiser"
)

// ParseMeta extracts ad candidates from a Meta Ad Library page. An
// optional keyword list narrows the blocks to those mentioning any
// keyword (case-insensitive); an empty list keeps everything.
func ParseMeta(ctx context.Context, page Page, keywords []string) ([]model.AdCandidate, error) {
	texts, err := page.QueryAllText(ctx, metaSelector)
	if err != nil {
		return nil, eris.Wrap(err, "adlib: meta query")
	}

	var blocks []string
	for _, t := range texts {
		cleaned := collapseWhitespace(t)
		if charLen(cleaned) <= metaMinLen {
			continue
		}
		if len(keywords) > 0 && !containsAnyKeyword(cleaned, keywords) {
			continue
		}
		blocks = append(blocks, cleaned)
	}

	unique := dedupeByPrefix(blocks, metaPrefixLen)

	ads := make([]model.AdCandidate, 0, len(unique))
	for _, creative := range unique {
		ads = append(ads, model.AdCandidate{
			Advertiser: metaAdvertiser,
			Creative:   creative,
		})
	}
	return ads, nil
}

func containsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
