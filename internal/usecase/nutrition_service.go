package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nutriscope/backend/internal/domain"
)

// NutritionRequest asks how many nutrients are in an amount of a unit of a
// food.
type NutritionRequest struct {
	FoodID string        `json:"foodId"`
	Source domain.Source `json:"source"`
	Amount float64       `json:"amount"`
	Unit   string        `json:"unit"`
}

// NutritionResult is the scaled nutrient answer for one food.
type NutritionResult struct {
	FoodID             string             `json:"foodId"`
	Source             domain.Source      `json:"source"`
	ServingDescription string             `json:"servingDescription"`
	Nutrients          domain.NutrientMap `json:"nutrients"`
	Freshness          domain.Freshness   `json:"dataFreshness"`
	Warnings           []string           `json:"warnings,omitempty"`
}

// NutritionService resolves nutrition lookups across both upstream
// providers and the custom food store.
type NutritionService struct {
	usda   domain.SourceClient
	off    domain.SourceClient
	custom domain.CustomFoodRepository
}

// NewNutritionService creates a nutrition service with its dependencies.
func NewNutritionService(usda, off domain.SourceClient, custom domain.CustomFoodRepository) *NutritionService {
	return &NutritionService{usda: usda, off: off, custom: custom}
}

// GetNutrition looks up a food by source and id, converts the requested
// amount/unit to the record's storage basis, and returns the scaled
// nutrient map. Upstream outages surface only as a stale freshness tag and
// a warning, never as a hard failure, unless no cached data exists at all.
func (s *NutritionService) GetNutrition(ctx context.Context, req NutritionRequest) (*NutritionResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount %v must be greater than 0", domain.ErrInvalidInput, req.Amount)
	}

	record, freshness, err := s.lookup(ctx, req.Source, req.FoodID)
	if err != nil {
		return nil, err
	}

	factor, err := ScaleFactor(record, req.Amount, req.Unit)
	if err != nil {
		return nil, err
	}

	nutrients, err := ScaleNutrients(record.Nutrients, factor)
	if err != nil {
		return nil, err
	}

	result := &NutritionResult{
		FoodID:             req.FoodID,
		Source:             req.Source,
		ServingDescription: servingDescription(req.Amount, req.Unit, record.Name),
		Nutrients:          nutrients,
		Freshness:          freshness,
	}
	if freshness == domain.FreshnessStale {
		result.Warnings = []string{fmt.Sprintf("Using cached data; %s API was unavailable.", req.Source)}
	}
	return result, nil
}

func (s *NutritionService) lookup(ctx context.Context, source domain.Source, foodID string) (*domain.NutritionRecord, domain.Freshness, error) {
	switch source {
	case domain.SourceUSDA:
		return s.usda.GetNutrition(ctx, foodID)
	case domain.SourceOpenFoodFacts:
		return s.off.GetNutrition(ctx, foodID)
	case domain.SourceCustom:
		// Custom foods are authoritative local data; there is no upstream
		// to be stale against.
		record, err := s.custom.Get(ctx, foodID)
		if err != nil {
			return nil, "", err
		}
		return record, domain.FreshnessLive, nil
	default:
		return nil, "", fmt.Errorf("%w: unknown source %q", domain.ErrInvalidInput, source)
	}
}

// servingDescription builds a human-readable serving string like
// "150g of Chicken Breast".
func servingDescription(amount float64, unit, name string) string {
	return fmt.Sprintf("%s%s of %s", strconv.FormatFloat(amount, 'f', -1, 64), unit, name)
}
