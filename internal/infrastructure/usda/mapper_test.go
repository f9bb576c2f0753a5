package usda

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriscope/backend/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestNormalizeSearchResults(t *testing.T) {
	t.Run("maps fields and passes score through", func(t *testing.T) {
		data := &searchResponse{Foods: []searchFood{
			{FdcID: 171705, Description: "Banana, raw", Score: 512.3},
			{FdcID: 2262074, Description: "BANANA CHIPS", BrandOwner: "Acme Snacks", Score: 101.5},
		}}

		results := normalizeSearchResults(data)

		require.Len(t, results, 2)
		assert.Equal(t, "171705", results[0].ID)
		assert.Equal(t, domain.SourceUSDA, results[0].Source)
		assert.Equal(t, "Banana, raw", results[0].Name)
		assert.Empty(t, results[0].Brand)
		assert.Equal(t, 512.3, results[0].MatchScore)
		assert.Equal(t, "Acme Snacks", results[1].Brand)
	})

	t.Run("brand falls back to brandName", func(t *testing.T) {
		data := &searchResponse{Foods: []searchFood{
			{FdcID: 1, Description: "Cereal", BrandName: "Morning Co"},
		}}

		results := normalizeSearchResults(data)

		require.Len(t, results, 1)
		assert.Equal(t, "Morning Co", results[0].Brand)
	})

	t.Run("skips entries without a description", func(t *testing.T) {
		data := &searchResponse{Foods: []searchFood{
			{FdcID: 1, Description: "   "},
			{FdcID: 2, Description: "Oats"},
		}}

		results := normalizeSearchResults(data)

		require.Len(t, results, 1)
		assert.Equal(t, "2", results[0].ID)
	})

	t.Run("caps at fifteen results", func(t *testing.T) {
		data := &searchResponse{}
		for i := 0; i < 30; i++ {
			data.Foods = append(data.Foods, searchFood{FdcID: int64(i + 1), Description: "Food"})
		}

		results := normalizeSearchResults(data)

		assert.Len(t, results, maxSearchResults)
	})
}

func TestExtractPortionData(t *testing.T) {
	t.Run("filters junk and invalid portions", func(t *testing.T) {
		raw := []foodPortion{
			{Amount: 1, GramWeight: 118, PortionDescription: "1 banana"},
			{Amount: 1, GramWeight: 0, PortionDescription: "1 extra large"},
			{Amount: 0, GramWeight: 50, PortionDescription: "1 half"},
			{Amount: 1, GramWeight: 100, PortionDescription: "Quantity not specified"},
			{Amount: 1, GramWeight: 90, PortionDescription: "undetermined"},
		}

		portions, _ := extractPortionData(raw)

		require.Len(t, portions, 1)
		assert.Equal(t, "1 banana", portions[0].Description)
		assert.Equal(t, 118.0, portions[0].GramWeight)
	})

	t.Run("description falls back to measure unit name", func(t *testing.T) {
		raw := []foodPortion{
			{Amount: 1, GramWeight: 240, MeasureUnit: &struct {
				Name string `json:"name"`
			}{Name: "cup"}},
		}

		portions, density := extractPortionData(raw)

		require.Len(t, portions, 1)
		assert.Equal(t, "cup", portions[0].Description)
		assert.InDelta(t, 240.0/236.588, density, 1e-9)
	})

	t.Run("derives density from a single cup portion", func(t *testing.T) {
		raw := []foodPortion{
			{Amount: 1, GramWeight: 244, PortionDescription: "1 cup"},
			{Amount: 1, GramWeight: 118, PortionDescription: "1 medium"},
		}

		_, density := extractPortionData(raw)

		assert.InDelta(t, 244.0/236.588, density, 1e-9)
	})

	t.Run("no density with multiple cup portions", func(t *testing.T) {
		raw := []foodPortion{
			{Amount: 1, GramWeight: 244, PortionDescription: "1 cup, whole"},
			{Amount: 0.5, GramWeight: 110, PortionDescription: "0.5 cups, sliced"},
		}

		_, density := extractPortionData(raw)

		assert.Zero(t, density)
	})

	t.Run("cup must be a whole word", func(t *testing.T) {
		raw := []foodPortion{
			{Amount: 1, GramWeight: 30, PortionDescription: "1 cupcake"},
		}

		_, density := extractPortionData(raw)

		assert.Zero(t, density)
	})
}

func TestNormalizeNutrition(t *testing.T) {
	t.Run("maps nutrient ids to canonical keys", func(t *testing.T) {
		data := &foodDetailResponse{
			FdcID:       171705,
			Description: "Banana, raw",
			FoodNutrients: []foodNutrient{
				nutrient(1008, 89),
				nutrient(1003, 1.1),
				nutrient(1005, 22.8),
				nutrient(1004, 0.3),
				nutrient(1079, 2.6),
				nutrient(9999, 42), // unmapped id, ignored
			},
		}

		record := normalizeNutrition(data)

		assert.Equal(t, "171705", record.FoodID)
		assert.Equal(t, domain.SourceUSDA, record.Source)
		assert.Equal(t, domain.StoragePer100g, record.StorageMode)
		assert.Equal(t, domain.ServingSize{Amount: 100, Unit: "g"}, record.ServingSize)

		assert.Equal(t, domain.NutrientValue{Value: 89, Available: true}, record.Nutrients[domain.NutrientCalories])
		assert.Equal(t, domain.NutrientValue{Value: 2.6, Available: true}, record.Nutrients[domain.NutrientFiber])
	})

	t.Run("missing mandatory nutrients stay present but unavailable", func(t *testing.T) {
		data := &foodDetailResponse{
			FdcID:         1,
			Description:   "Mystery food",
			FoodNutrients: []foodNutrient{nutrient(1008, 100)},
		}

		record := normalizeNutrition(data)

		protein, ok := record.Nutrients[domain.NutrientProtein]
		require.True(t, ok, "mandatory nutrient key must exist")
		assert.False(t, protein.Available)
		assert.Zero(t, protein.Value)
	})

	t.Run("optional nutrients absent upstream are omitted", func(t *testing.T) {
		data := &foodDetailResponse{
			FdcID:         1,
			Description:   "Plain food",
			FoodNutrients: []foodNutrient{nutrient(1008, 100)},
		}

		record := normalizeNutrition(data)

		_, ok := record.Nutrients[domain.NutrientCholesterol]
		assert.False(t, ok, "optional nutrient without data must not appear")
	})

	t.Run("nutrient with nil amount is skipped", func(t *testing.T) {
		fn := foodNutrient{}
		fn.Nutrient.ID = 1093
		data := &foodDetailResponse{
			FdcID:         1,
			Description:   "Food",
			FoodNutrients: []foodNutrient{fn},
		}

		record := normalizeNutrition(data)

		_, ok := record.Nutrients[domain.NutrientSodium]
		assert.False(t, ok)
	})

	t.Run("flags foods whose portions were all filtered", func(t *testing.T) {
		data := &foodDetailResponse{
			FdcID:       1,
			Description: "Food",
			FoodPortions: []foodPortion{
				{Amount: 1, GramWeight: 100, PortionDescription: "Quantity not specified"},
			},
		}

		record := normalizeNutrition(data)

		assert.True(t, record.HasFilteredJunkPortions)
		assert.Empty(t, record.Portions)
	})

	t.Run("no flag when no portions were present at all", func(t *testing.T) {
		record := normalizeNutrition(&foodDetailResponse{FdcID: 1, Description: "Food"})

		assert.False(t, record.HasFilteredJunkPortions)
	})

	t.Run("finite values survive normalization", func(t *testing.T) {
		data := &foodDetailResponse{
			FdcID:         1,
			Description:   "Food",
			FoodNutrients: []foodNutrient{nutrient(1008, 89.4)},
		}

		record := normalizeNutrition(data)

		assert.False(t, math.IsNaN(record.Nutrients[domain.NutrientCalories].Value))
	})
}

func nutrient(id int, amount float64) foodNutrient {
	fn := foodNutrient{Amount: floatPtr(amount)}
	fn.Nutrient.ID = id
	return fn
}
