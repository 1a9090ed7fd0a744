package adlib

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/marketingos/adsurv-cli/internal/model"
)

const (
	googleSelector   = "creative-preview"
	googleMinLen     = 40
	googleAdvertiser = "Google Advertiser"
)

// ParseGoogle extracts ad candidates from a Google Ads Transparency
// Center page. Google renders each creative in its own element, so no
// dedupe pass is needed.
func ParseGoogle(ctx context.Context, page Page) ([]model.AdCandidate, error) {
	texts, err := page.QueryAllText(ctx, googleSelector)
	if err != nil {
		return nil, eris.Wrap(err, "adlib: google query")
	}

	var ads []model.AdCandidate
	for _, t := range texts {
		cleaned := collapseWhitespace(t)
		if charLen(cleaned) <= googleMinLen {
			continue
		}
		ads = append(ads, model.AdCandidate{
			Advertiser: googleAdvertiser,
			Creative:   truncate(cleaned, maxCreativeLen),
		})
	}
	return ads, nil
}
