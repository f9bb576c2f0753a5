package domain

// Source identifies where a food record came from.
type Source string

const (
	SourceUSDA          Source = "usda"
	SourceOpenFoodFacts Source = "openfoodfacts"
	SourceCustom        Source = "custom"

	// SourceAll is a search-only pseudo-source covering both upstream
	// providers.
	SourceAll Source = "all"
)

// Freshness describes how a value was resolved: a live upstream call, a
// fresh cache hit, or an expired cache fallback.
type Freshness string

const (
	FreshnessLive  Freshness = "live"
	FreshnessCache Freshness = "cache"
	FreshnessStale Freshness = "stale"
)

// freshnessRank orders freshness from most to least fresh.
var freshnessRank = map[Freshness]int{
	FreshnessLive:  0,
	FreshnessCache: 1,
	FreshnessStale: 2,
}

// LeastFresh returns the less fresh of a and b (stale > cache > live).
func LeastFresh(a, b Freshness) Freshness {
	if freshnessRank[a] >= freshnessRank[b] {
		return a
	}
	return b
}

// Coverage describes whether a nutrient was available across all, some, or
// none of a meal's items.
type Coverage string

const (
	CoverageFull    Coverage = "full"
	CoveragePartial Coverage = "partial"
	CoverageNone    Coverage = "none"
)

// SearchResult is one item returned by food search across any source.
type SearchResult struct {
	ID         string  `json:"id"`
	Source     Source  `json:"source"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand,omitempty"`
	MatchScore float64 `json:"matchScore"`
}
