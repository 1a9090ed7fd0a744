// Package estimate synthesizes spend/impression metrics for scraped
// ad creatives. Real delivery numbers are not obtainable from public
// ad libraries, so the point estimates come from benchmark CPM/CTR
// rates applied to a random impression draw, with explicit uncertainty
// bounds.
package estimate

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/marketingos/adsurv-cli/internal/model"
)

// Impression draw range: uniform in [ImpressionsMin, ImpressionsMax).
const (
	ImpressionsMin = 8000
	ImpressionsMax = 20000
)

// Bound widths around the point estimates.
const (
	spendBoundFrac       = 0.20
	impressionsBoundFrac = 0.15
)

// AdEstimate holds synthesized metrics for one creative.
type AdEstimate struct {
	Impressions           int
	Spend                 float64
	Clicks                int
	CTR                   float64
	SpendLowerBound       float64
	SpendUpperBound       float64
	ImpressionsLowerBound int
	ImpressionsUpperBound int
}

// Estimator draws impression counts and applies platform rates. The
// random source is injectable so tests are deterministic.
type Estimator struct {
	randFloat func() float64 // uniform [0, 1)
}

// New creates an Estimator backed by the shared PRNG.
func New() *Estimator {
	return &Estimator{randFloat: rand.Float64}
}

// NewWithSource creates an Estimator with a custom uniform source.
func NewWithSource(src func() float64) *Estimator {
	return &Estimator{randFloat: src}
}

// Estimate synthesizes metrics for one creative on the given platform.
func (e *Estimator) Estimate(platform model.Platform) (*AdEstimate, error) {
	rates, ok := model.PlatformRates[platform]
	if !ok {
		return nil, eris.Errorf("estimate: unknown platform %q", platform)
	}

	impressions := ImpressionsMin + int(e.randFloat()*float64(ImpressionsMax-ImpressionsMin))
	spend := float64(impressions) / 1000 * rates.CPM
	clicks := int(math.Round(float64(impressions) * rates.CTR))

	return &AdEstimate{
		Impressions:           impressions,
		Spend:                 round2(spend),
		Clicks:                clicks,
		CTR:                   round4(rates.CTR),
		SpendLowerBound:       round2(spend * (1 - spendBoundFrac)),
		SpendUpperBound:       round2(spend * (1 + spendBoundFrac)),
		ImpressionsLowerBound: int(math.Round(float64(impressions) * (1 - impressionsBoundFrac))),
		ImpressionsUpperBound: int(math.Round(float64(impressions) * (1 + impressionsBoundFrac))),
	}, nil
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
