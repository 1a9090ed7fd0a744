package adlib

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/model"
)

const (
	linkedinSelector   = "div"
	linkedinMinLen     = 120
	linkedinMaxLen     = 1000
	linkedinPrefixLen  = 150
	linkedinAdvertiser = "LinkedIn Advertiser"
)

// ParseLinkedIn extracts ad candidates from a LinkedIn Ad Library
// page. LinkedIn nests the same copy in many wrapper divs, so blocks
// are bounded on both ends and deduplicated by prefix fingerprint.
func ParseLinkedIn(ctx context.Context, page Page) ([]model.AdCandidate, error) {
	texts, err := page.QueryAllText(ctx, linkedinSelector)
	if err != nil {
		return nil, eris.Wrap(err, "adlib: linkedin query")
	}

	var blocks []string
	for _, t := range texts {
		cleaned := collapseWhitespace(t)
		if n := charLen(cleaned); n > linkedinMinLen && n < linkedinMaxLen {
			blocks = append(blocks, cleaned)
		}
	}
	zap.L().Debug("adlib: linkedin text blocks", zap.Int("count", len(blocks)))

	unique := dedupeByPrefix(blocks, linkedinPrefixLen)
	zap.L().Debug("adlib: linkedin ads after dedupe", zap.Int("count", len(unique)))

	ads := make([]model.AdCandidate, 0, len(unique))
	for _, creative := range unique {
		ads = append(ads, model.AdCandidate{
			Advertiser: linkedinAdvertiser,
			Creative:   creative,
		})
	}
	return ads, nil
}
