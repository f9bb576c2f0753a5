package domain

// Canonical nutrient keys. The four mandatory keys are always present in a
// normalized record, possibly with Available=false.
const (
	NutrientCalories    = "calories"
	NutrientProtein     = "protein_g"
	NutrientTotalCarbs  = "total_carbs_g"
	NutrientTotalFat    = "total_fat_g"
	NutrientFiber       = "fiber_g"
	NutrientSugar       = "sugar_g"
	NutrientSatFat      = "saturated_fat_g"
	NutrientSodium      = "sodium_mg"
	NutrientCholesterol = "cholesterol_mg"
)

// MandatoryNutrients are the keys every normalized record must carry.
var MandatoryNutrients = []string{
	NutrientCalories,
	NutrientProtein,
	NutrientTotalCarbs,
	NutrientTotalFat,
}

// NutrientValue distinguishes "measured as zero" from "not measured".
// When Available is false, Value is meaningless and stored as 0.
type NutrientValue struct {
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
}

// NutrientMap is an open-ended mapping from canonical nutrient key to value.
type NutrientMap map[string]NutrientValue

// MissingMandatory returns the mandatory nutrient keys absent from the map.
func (m NutrientMap) MissingMandatory() []string {
	var missing []string
	for _, key := range MandatoryNutrients {
		if _, ok := m[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// NewNutrientMap returns a map with the mandatory keys initialized to
// unavailable.
func NewNutrientMap() NutrientMap {
	m := make(NutrientMap, len(MandatoryNutrients))
	for _, key := range MandatoryNutrients {
		m[key] = NutrientValue{}
	}
	return m
}

// StorageMode describes the basis nutrient values are stored on.
type StorageMode string

const (
	// StoragePer100g means nutrients are stored per 100 grams and
	// ServingSize is {100, "g"}.
	StoragePer100g StorageMode = "per-100g"

	// StoragePerServing means nutrients are stored per one reference unit
	// and ServingSize.Amount is 1.
	StoragePerServing StorageMode = "per-serving"
)

// ServingSize is a reference amount and unit for a food record.
type ServingSize struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// PortionData is one real-world serving equivalence for a food,
// e.g. "1 medium banana" = 118 g.
type PortionData struct {
	Description string  `json:"portionDescription"`
	Modifier    string  `json:"modifier,omitempty"`
	GramWeight  float64 `json:"gramWeight"`
	Amount      float64 `json:"amount"`
}

// NutritionRecord is the canonical per-food record produced by the source
// normalizers and the custom food store.
type NutritionRecord struct {
	FoodID      string        `json:"foodId"`
	Source      Source        `json:"source"`
	Name        string        `json:"name"`
	ServingSize ServingSize   `json:"servingSize"`
	StorageMode StorageMode   `json:"storageMode,omitempty"`
	Portions    []PortionData `json:"portions,omitempty"`

	// DensityGramsPerML converts milliliters to grams for this food.
	// Zero means density is unknown.
	DensityGramsPerML float64 `json:"densityGPerMl,omitempty"`

	// HasFilteredJunkPortions is set when raw portions existed upstream but
	// every one was discarded as unusable.
	HasFilteredJunkPortions bool `json:"hasFilteredJunkPortions,omitempty"`

	Nutrients NutrientMap `json:"nutrients"`
}
