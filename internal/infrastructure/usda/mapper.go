package usda

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nutriscope/backend/internal/domain"
)

const (
	// maxSearchResults caps how many provider hits a search returns.
	maxSearchResults = 15

	mlPerCup = 236.588
)

// nutrientIDMap maps USDA FoodData Central nutrient IDs to canonical keys.
var nutrientIDMap = map[int]string{
	1008: domain.NutrientCalories,
	1003: domain.NutrientProtein,
	1005: domain.NutrientTotalCarbs,
	1004: domain.NutrientTotalFat,
	1079: domain.NutrientFiber,
	2000: domain.NutrientSugar,
	1258: domain.NutrientSatFat,
	1093: domain.NutrientSodium,
	1253: domain.NutrientCholesterol,
}

// junkDescriptions provide no useful matching information.
var junkDescriptions = map[string]bool{
	"undetermined":           true,
	"quantity not specified": true,
	"unknown":                true,
}

var cupWordRegex = regexp.MustCompile(`\bcups?\b`)

// -- USDA API response shapes (subset of fields we use) --

type searchFood struct {
	FdcID       int64   `json:"fdcId"`
	Description string  `json:"description"`
	BrandOwner  string  `json:"brandOwner,omitempty"`
	BrandName   string  `json:"brandName,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

type searchResponse struct {
	Foods     []searchFood `json:"foods"`
	TotalHits int          `json:"totalHits"`
}

type foodNutrient struct {
	Nutrient struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		UnitName string `json:"unitName"`
	} `json:"nutrient"`
	Amount *float64 `json:"amount,omitempty"`
}

type foodPortion struct {
	ID                 int64   `json:"id"`
	Amount             float64 `json:"amount"`
	GramWeight         float64 `json:"gramWeight"`
	PortionDescription string  `json:"portionDescription,omitempty"`
	Modifier           string  `json:"modifier,omitempty"`
	MeasureUnit        *struct {
		Name string `json:"name"`
	} `json:"measureUnit,omitempty"`
}

type foodDetailResponse struct {
	FdcID         int64          `json:"fdcId"`
	Description   string         `json:"description"`
	FoodNutrients []foodNutrient `json:"foodNutrients"`
	FoodPortions  []foodPortion  `json:"foodPortions,omitempty"`
}

// normalizeSearchResults maps a USDA search response into the canonical
// search shape, capped at maxSearchResults. The provider relevance score
// passes through as the match score.
func normalizeSearchResults(data *searchResponse) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(data.Foods))
	for _, food := range data.Foods {
		if len(results) == maxSearchResults {
			break
		}
		if strings.TrimSpace(food.Description) == "" {
			continue
		}
		brand := food.BrandOwner
		if brand == "" {
			brand = food.BrandName
		}
		results = append(results, domain.SearchResult{
			ID:         strconv.FormatInt(food.FdcID, 10),
			Source:     domain.SourceUSDA,
			Name:       food.Description,
			Brand:      brand,
			MatchScore: food.Score,
		})
	}
	return results
}

// isJunkDescription reports whether a portion description is useless for
// matching.
func isJunkDescription(description string) bool {
	trimmed := strings.TrimSpace(description)
	return trimmed == "" || junkDescriptions[strings.ToLower(trimmed)]
}

// extractPortionData filters raw portions into usable PortionData and
// derives density when exactly one surviving portion is a cup measure.
func extractPortionData(rawPortions []foodPortion) ([]domain.PortionData, float64) {
	portions := make([]domain.PortionData, 0, len(rawPortions))
	for _, p := range rawPortions {
		if p.GramWeight <= 0 || p.Amount <= 0 {
			continue
		}
		description := p.PortionDescription
		if description == "" && p.MeasureUnit != nil {
			description = p.MeasureUnit.Name
		}
		if isJunkDescription(description) {
			continue
		}
		portions = append(portions, domain.PortionData{
			Description: description,
			Modifier:    p.Modifier,
			GramWeight:  p.GramWeight,
			Amount:      p.Amount,
		})
	}

	// A single unambiguous cup portion gives grams per mL.
	var density float64
	var cupPortion *domain.PortionData
	cupCount := 0
	for i := range portions {
		if cupWordRegex.MatchString(strings.ToLower(portions[i].Description)) {
			cupPortion = &portions[i]
			cupCount++
		}
	}
	if cupCount == 1 {
		density = cupPortion.GramWeight / mlPerCup
	}

	return portions, density
}

// normalizeNutrition maps a USDA food detail response into the canonical
// record. Mandatory nutrients missing upstream are recorded as unavailable;
// optional nutrients appear only when the payload has them.
func normalizeNutrition(data *foodDetailResponse) *domain.NutritionRecord {
	raw := make(map[string]float64)
	for _, fn := range data.FoodNutrients {
		key, ok := nutrientIDMap[fn.Nutrient.ID]
		if !ok || fn.Amount == nil {
			continue
		}
		raw[key] = *fn.Amount
	}

	nutrients := domain.NewNutrientMap()
	for _, key := range nutrientIDMap {
		if value, ok := raw[key]; ok {
			nutrients[key] = domain.NutrientValue{Value: value, Available: true}
		}
	}

	record := &domain.NutritionRecord{
		FoodID:      strconv.FormatInt(data.FdcID, 10),
		Source:      domain.SourceUSDA,
		Name:        data.Description,
		ServingSize: domain.ServingSize{Amount: 100, Unit: "g"},
		StorageMode: domain.StoragePer100g,
		Nutrients:   nutrients,
	}

	if len(data.FoodPortions) > 0 {
		portions, density := extractPortionData(data.FoodPortions)
		if len(portions) > 0 {
			record.Portions = portions
		} else {
			// Raw portions existed but all were filtered as junk.
			record.HasFilteredJunkPortions = true
		}
		record.DensityGramsPerML = density
	}

	return record
}
