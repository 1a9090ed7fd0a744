package model

import "strings"

// Platform identifies an ad library source.
type Platform string

const (
	PlatformMeta     Platform = "meta"
	PlatformLinkedIn Platform = "linkedin"
	PlatformGoogle   Platform = "google"
)

// Rates holds the benchmark CPM/CTR constants used to synthesize
// spend and click estimates. Real spend is not published by any of
// the public ad libraries, so these are industry averages.
type Rates struct {
	CPM float64 // USD per thousand impressions
	CTR float64 // click-through rate, fraction
}

// PlatformRates maps each supported platform to its benchmark rates.
// Not runtime-configurable.
var PlatformRates = map[Platform]Rates{
	PlatformMeta:     {CPM: 12.50, CTR: 0.012},
	PlatformLinkedIn: {CPM: 33.00, CTR: 0.0045},
	PlatformGoogle:   {CPM: 18.00, CTR: 0.031},
}

// ParsePlatform normalizes a platform string. Returns false for
// unknown platforms.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	_, ok := PlatformRates[p]
	return p, ok
}

// String implements fmt.Stringer.
func (p Platform) String() string { return string(p) }
