package openfoodfacts

import (
	"strings"

	"github.com/nutriscope/backend/internal/domain"
)

// maxSearchResults caps how many provider hits a search returns.
const maxSearchResults = 10

// Open Food Facts reports sodium in grams per 100g; canonical storage is
// milligrams. Applied once, at ingest.
const sodiumGramsToMilligrams = 1000

// nutrimentKeyMap maps Open Food Facts nutriment keys to canonical keys.
var nutrimentKeyMap = map[string]string{
	"energy-kcal_100g":   domain.NutrientCalories,
	"proteins_100g":      domain.NutrientProtein,
	"carbohydrates_100g": domain.NutrientTotalCarbs,
	"fat_100g":           domain.NutrientTotalFat,
	"fiber_100g":         domain.NutrientFiber,
	"sugars_100g":        domain.NutrientSugar,
	"saturated-fat_100g": domain.NutrientSatFat,
	"sodium_100g":        domain.NutrientSodium,
	"cholesterol_100g":   domain.NutrientCholesterol,
}

// -- Open Food Facts API response shapes (subset of fields we use) --

type searchProduct struct {
	Code        string `json:"code"`
	ProductName string `json:"product_name,omitempty"`
	Brands      string `json:"brands,omitempty"`
}

type searchResponse struct {
	Count    int             `json:"count"`
	Products []searchProduct `json:"products"`
}

type productDetail struct {
	Code        string             `json:"code"`
	ProductName string             `json:"product_name,omitempty"`
	Brands      string             `json:"brands,omitempty"`
	Nutriments  map[string]float64 `json:"nutriments,omitempty"`
}

type productResponse struct {
	Status  int            `json:"status"`
	Product *productDetail `json:"product"`
}

// normalizeSearchResults maps an Open Food Facts search response into the
// canonical search shape. The provider has no relevance score, so one is
// synthesized from result position, decreasing monotonically.
func normalizeSearchResults(data *searchResponse) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(data.Products))
	for _, product := range data.Products {
		if len(results) == maxSearchResults {
			break
		}
		if strings.TrimSpace(product.ProductName) == "" {
			continue
		}
		score := 1 - float64(len(results))*0.05
		if score < 0 {
			score = 0
		}
		results = append(results, domain.SearchResult{
			ID:         product.Code,
			Source:     domain.SourceOpenFoodFacts,
			Name:       product.ProductName,
			Brand:      product.Brands,
			MatchScore: score,
		})
	}
	return results
}

// normalizeNutrition maps Open Food Facts nutriments into the canonical
// record. Mandatory nutrients missing upstream are recorded as unavailable;
// optional nutrients appear only when the payload has them.
func normalizeNutrition(product *productDetail) *domain.NutritionRecord {
	nutrients := domain.NewNutrientMap()
	for offKey, key := range nutrimentKeyMap {
		value, ok := product.Nutriments[offKey]
		if !ok {
			continue
		}
		if key == domain.NutrientSodium {
			value *= sodiumGramsToMilligrams
		}
		nutrients[key] = domain.NutrientValue{Value: value, Available: true}
	}

	name := product.ProductName
	if name == "" {
		name = "Unknown"
	}

	return &domain.NutritionRecord{
		FoodID:      product.Code,
		Source:      domain.SourceOpenFoodFacts,
		Name:        name,
		ServingSize: domain.ServingSize{Amount: 100, Unit: "g"},
		StorageMode: domain.StoragePer100g,
		Nutrients:   nutrients,
	}
}
