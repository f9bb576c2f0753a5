package usecase

import (
	"context"
	"fmt"

	"github.com/nutriscope/backend/internal/domain"
)

// MealItem is one entry in a meal calculation request.
type MealItem struct {
	FoodID string        `json:"foodId"`
	Source domain.Source `json:"source"`
	Amount float64       `json:"amount"`
	Unit   string        `json:"unit"`
}

// MealItemResult is the resolved nutrient answer for one meal item.
type MealItemResult struct {
	FoodID             string             `json:"foodId"`
	Source             domain.Source      `json:"source"`
	ServingDescription string             `json:"servingDescription"`
	Nutrients          domain.NutrientMap `json:"nutrients"`
}

// MealResult is the aggregated answer for a whole meal.
type MealResult struct {
	Items     []MealItemResult           `json:"items"`
	Totals    domain.NutrientMap         `json:"totals"`
	Coverage  map[string]domain.Coverage `json:"nutrientCoverage"`
	Freshness domain.Freshness           `json:"dataFreshness"`
	Warnings  []string                   `json:"warnings,omitempty"`
}

// MealService sums nutrients across independently resolved meal items.
type MealService struct {
	nutrition *NutritionService
}

// NewMealService creates a meal service on top of a nutrition service.
func NewMealService(nutrition *NutritionService) *MealService {
	return &MealService{nutrition: nutrition}
}

// CalculateMeal resolves every item and aggregates the results. Any single
// item failing outright fails the whole request, wrapped with the item's
// index and id. Overall freshness is the least fresh across items; warnings
// are concatenated in item order.
func (s *MealService) CalculateMeal(ctx context.Context, items []MealItem) (*MealResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: meal must contain at least one item", domain.ErrInvalidInput)
	}

	itemResults := make([]MealItemResult, 0, len(items))
	itemNutrients := make([]domain.NutrientMap, 0, len(items))
	var warnings []string
	freshness := domain.FreshnessLive

	for i, item := range items {
		result, err := s.nutrition.GetNutrition(ctx, NutritionRequest{
			FoodID: item.FoodID,
			Source: item.Source,
			Amount: item.Amount,
			Unit:   item.Unit,
		})
		if err != nil {
			return nil, &domain.MealItemError{Index: i, FoodID: item.FoodID, Err: err}
		}

		itemResults = append(itemResults, MealItemResult{
			FoodID:             item.FoodID,
			Source:             item.Source,
			ServingDescription: result.ServingDescription,
			Nutrients:          result.Nutrients,
		})
		itemNutrients = append(itemNutrients, result.Nutrients)
		freshness = domain.LeastFresh(freshness, result.Freshness)
		warnings = append(warnings, result.Warnings...)
	}

	totals, coverage := sumNutrients(itemNutrients)

	return &MealResult{
		Items:     itemResults,
		Totals:    totals,
		Coverage:  coverage,
		Freshness: freshness,
		Warnings:  warnings,
	}, nil
}

// sumNutrients aggregates per-item nutrient maps over the union of keys.
// Per-item values are already rounded to one decimal; the sum deliberately
// operates on those rounded values for compatibility with existing clients.
func sumNutrients(itemNutrients []domain.NutrientMap) (domain.NutrientMap, map[string]domain.Coverage) {
	allKeys := make(map[string]bool)
	for _, nutrients := range itemNutrients {
		for key := range nutrients {
			allKeys[key] = true
		}
	}

	totals := make(domain.NutrientMap, len(allKeys))
	coverage := make(map[string]domain.Coverage, len(allKeys))

	for key := range allKeys {
		sum := 0.0
		availableCount := 0
		for _, nutrients := range itemNutrients {
			nutrient, ok := nutrients[key]
			if !ok || !nutrient.Available {
				continue
			}
			availableCount++
			sum += nutrient.Value
		}

		totals[key] = domain.NutrientValue{
			Value:     round1(sum),
			Available: availableCount == len(itemNutrients),
		}
		coverage[key] = coverageFor(availableCount, len(itemNutrients))
	}

	return totals, coverage
}

func coverageFor(availableCount, totalItems int) domain.Coverage {
	switch {
	case availableCount == totalItems:
		return domain.CoverageFull
	case availableCount > 0:
		return domain.CoveragePartial
	default:
		return domain.CoverageNone
	}
}
