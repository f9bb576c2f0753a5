package domain

import "context"

// SourceClient is the interface both upstream provider clients expose.
// Transient upstream failures are absorbed internally via the stale-cache
// fallback and surface only as FreshnessStale; an error is returned for
// not-found and internal faults only.
type SourceClient interface {
	// SearchFoods returns normalized search results for a free-text query.
	// A provider outage with no cached results yields an empty slice tagged
	// stale, not an error.
	SearchFoods(ctx context.Context, query string) ([]SearchResult, Freshness, error)

	// GetNutrition returns the normalized record for a provider-specific
	// food id. Returns ErrNotFound when the id is absent from both the
	// provider and the stale cache.
	GetNutrition(ctx context.Context, foodID string) (*NutritionRecord, Freshness, error)
}

// CustomFoodRepository persists user-declared foods.
type CustomFoodRepository interface {
	Save(ctx context.Context, input SaveFoodInput) (string, error)
	Get(ctx context.Context, id string) (*NutritionRecord, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// SaveFoodInput is the caller-supplied declaration for a custom food.
type SaveFoodInput struct {
	Name        string             `json:"name" binding:"required"`
	Brand       string             `json:"brand,omitempty"`
	Category    string             `json:"category,omitempty"`
	ServingSize ServingSize        `json:"servingSize" binding:"required"`
	Nutrients   map[string]float64 `json:"nutrients" binding:"required"`
}
