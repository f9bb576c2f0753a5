package conversion

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nutriscope/backend/internal/domain"
)

// Unit tables. Units are matched case-insensitively; table keys are
// lowercase.
var weightToGramsTable = map[string]float64{
	"g":  1,
	"kg": 1000,
	"oz": 28.3495,
	"lb": 453.592,
}

var volumeToMLTable = map[string]float64{
	"ml":    1,
	"l":     1000,
	"cup":   236.588,
	"tbsp":  14.787,
	"tsp":   4.929,
	"fl_oz": 29.574,
}

// descriptiveUnits resolve through per-food portion data.
var descriptiveUnits = map[string]bool{
	"piece":  true,
	"slice":  true,
	"small":  true,
	"medium": true,
	"large":  true,
}

// Stable listing order for error messages.
var (
	weightUnitNames      = []string{"g", "kg", "oz", "lb"}
	volumeUnitNames      = []string{"ml", "l", "cup", "tbsp", "tsp", "fl_oz"}
	descriptiveUnitNames = []string{"piece", "slice", "small", "medium", "large"}
)

// measurementKeywordRegex marks a portion description as a measured
// quantity rather than a countable natural unit.
var measurementKeywordRegex = regexp.MustCompile(`\b(cups?|tbsp|tsp|oz|fl|g|ml|slices?|inch|inches)\b`)

// Context carries the per-food metadata a conversion may need.
type Context struct {
	DensityGramsPerML       float64
	Portions                []domain.PortionData
	HasFilteredJunkPortions bool
}

// ContextFromRecord extracts the conversion metadata embedded in a
// normalized record.
func ContextFromRecord(record *domain.NutritionRecord) Context {
	return Context{
		DensityGramsPerML:       record.DensityGramsPerML,
		Portions:                record.Portions,
		HasFilteredJunkPortions: record.HasFilteredJunkPortions,
	}
}

// IsWeightUnit reports whether unit converts directly to grams.
func IsWeightUnit(unit string) bool {
	_, ok := weightToGramsTable[strings.ToLower(unit)]
	return ok
}

// WeightToGrams converts a weight amount to grams.
func WeightToGrams(amount float64, unit string) (float64, error) {
	factor, ok := weightToGramsTable[strings.ToLower(unit)]
	if !ok {
		return 0, unsupportedUnit(unit)
	}
	return amount * factor, nil
}

// ToGrams converts any supported amount/unit pair to grams.
//
// Weight units convert directly; volume units require density; descriptive
// units (piece, slice, small, medium, large) resolve through the food's
// portion data in three tiers: exact substring match, "piece" fallback to
// the lightest natural unit, then size-keyword selection among natural
// units.
func ToGrams(amount float64, unit string, ctx Context) (float64, error) {
	lower := strings.ToLower(unit)

	if factor, ok := weightToGramsTable[lower]; ok {
		return amount * factor, nil
	}

	if factor, ok := volumeToMLTable[lower]; ok {
		if ctx.DensityGramsPerML <= 0 {
			return 0, &domain.ConversionError{
				Unit:     unit,
				Reason:   "density data (grams per mL) is not available for this food",
				Sentinel: domain.ErrMissingConversionData,
			}
		}
		return amount * factor * ctx.DensityGramsPerML, nil
	}

	if descriptiveUnits[lower] {
		return resolveDescriptive(amount, lower, ctx)
	}

	return 0, unsupportedUnit(unit)
}

func unsupportedUnit(unit string) error {
	supported := make([]string, 0, len(weightUnitNames)+len(volumeUnitNames)+len(descriptiveUnitNames))
	supported = append(supported, weightUnitNames...)
	supported = append(supported, volumeUnitNames...)
	supported = append(supported, descriptiveUnitNames...)
	return &domain.UnsupportedUnitError{Unit: unit, Supported: supported}
}

// resolveDescriptive resolves a descriptive unit against portion data.
// Tiers are tried in order; the first match wins.
func resolveDescriptive(amount float64, unit string, ctx Context) (float64, error) {
	if len(ctx.Portions) == 0 {
		reason := "no portion data available for this food"
		if ctx.HasFilteredJunkPortions {
			reason = "portion descriptions for this food are not usable"
		}
		return 0, &domain.ConversionError{
			Unit:     unit,
			Reason:   reason,
			Sentinel: domain.ErrMissingConversionData,
		}
	}

	// Tier 1: exact substring match on description or modifier.
	for _, p := range ctx.Portions {
		if strings.Contains(strings.ToLower(p.Description), unit) ||
			strings.Contains(strings.ToLower(p.Modifier), unit) {
			return portionGrams(amount, p)
		}
	}

	natural := naturalUnitPortions(ctx.Portions)

	// Tier 2: "piece" falls back to the lightest natural unit.
	if unit == "piece" && len(natural) > 0 {
		return portionGrams(amount, natural[0])
	}

	// Tier 3: size keywords select among natural units by gram weight.
	if len(natural) > 0 {
		switch unit {
		case "small":
			return portionGrams(amount, natural[0])
		case "large":
			return portionGrams(amount, natural[len(natural)-1])
		case "medium":
			return portionGrams(amount, natural[len(natural)/2])
		}
	}

	available := make([]string, len(ctx.Portions))
	for i, p := range ctx.Portions {
		available[i] = p.Description
	}
	return 0, &domain.ConversionError{
		Unit:              unit,
		Reason:            "no matching portion found",
		AvailablePortions: available,
		Sentinel:          domain.ErrAmbiguousConversion,
	}
}

// naturalUnitPortions returns the portions representing one countable
// real-world item, sorted ascending by gram weight.
func naturalUnitPortions(portions []domain.PortionData) []domain.PortionData {
	var natural []domain.PortionData
	for _, p := range portions {
		if p.Amount != 1 {
			continue
		}
		if measurementKeywordRegex.MatchString(strings.ToLower(p.Description)) {
			continue
		}
		natural = append(natural, p)
	}
	sort.Slice(natural, func(i, j int) bool {
		return natural[i].GramWeight < natural[j].GramWeight
	})
	return natural
}

// portionGrams scales a matched portion to the requested amount.
func portionGrams(amount float64, p domain.PortionData) (float64, error) {
	if p.Amount <= 0 {
		return 0, &domain.ConversionError{
			Unit:     p.Description,
			Reason:   "portion data is invalid (non-positive portion amount)",
			Sentinel: domain.ErrMalformedData,
		}
	}
	return (amount / p.Amount) * p.GramWeight, nil
}
