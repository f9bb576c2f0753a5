package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/nutriscope/backend/internal/conversion"
	"github.com/nutriscope/backend/internal/domain"
)

// round1 rounds to one decimal place, the read-time scaling precision.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ScaleNutrient scales a single nutrient by factor. Unavailable nutrients
// are never multiplied.
func ScaleNutrient(nutrient domain.NutrientValue, factor float64) domain.NutrientValue {
	if !nutrient.Available {
		return domain.NutrientValue{}
	}
	return domain.NutrientValue{Value: round1(nutrient.Value * factor), Available: true}
}

// ScaleNutrients scales every nutrient in the map by factor and verifies the
// mandatory keys survived, guarding against malformed upstream data.
func ScaleNutrients(nutrients domain.NutrientMap, factor float64) (domain.NutrientMap, error) {
	scaled := make(domain.NutrientMap, len(nutrients))
	for key, nutrient := range nutrients {
		scaled[key] = ScaleNutrient(nutrient, factor)
	}

	if missing := scaled.MissingMandatory(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required nutrients: %s",
			domain.ErrMalformedData, strings.Join(missing, ", "))
	}

	return scaled, nil
}

// ScaleFactor computes the multiplier that takes a record's stored nutrient
// basis to the requested amount/unit.
//
// Per-100g records resolve the unit to grams through the record's conversion
// metadata. Per-serving records only accept the exact unit they were saved
// with; the factor is then a straight ratio multiply.
func ScaleFactor(record *domain.NutritionRecord, amount float64, unit string) (float64, error) {
	if record.StorageMode == domain.StoragePerServing {
		if !strings.EqualFold(unit, record.ServingSize.Unit) {
			return 0, &domain.UnitMismatchError{
				FoodID:    record.FoodID,
				Requested: unit,
				Stored:    record.ServingSize.Unit,
			}
		}
		return amount, nil
	}

	grams, err := conversion.ToGrams(amount, unit, conversion.ContextFromRecord(record))
	if err != nil {
		return 0, err
	}
	return grams / 100, nil
}
