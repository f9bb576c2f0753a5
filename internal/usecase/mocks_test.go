package usecase

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nutriscope/backend/internal/domain"
	"github.com/nutriscope/backend/internal/infrastructure/cache"
	"github.com/nutriscope/backend/internal/infrastructure/store"
)

// mockSourceClient implements domain.SourceClient with injectable behavior.
type mockSourceClient struct {
	searchFn    func(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error)
	nutritionFn func(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error)
}

func (m *mockSourceClient) SearchFoods(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
	if m.searchFn == nil {
		return []domain.SearchResult{}, domain.FreshnessLive, nil
	}
	return m.searchFn(ctx, query)
}

func (m *mockSourceClient) GetNutrition(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error) {
	if m.nutritionFn == nil {
		return nil, "", domain.ErrNotFound
	}
	return m.nutritionFn(ctx, foodID)
}

// mockCustomRepo implements domain.CustomFoodRepository with injectable
// behavior.
type mockCustomRepo struct {
	saveFn   func(ctx context.Context, input domain.SaveFoodInput) (string, error)
	getFn    func(ctx context.Context, id string) (*domain.NutritionRecord, error)
	searchFn func(ctx context.Context, query string) ([]domain.SearchResult, error)
}

func (m *mockCustomRepo) Save(ctx context.Context, input domain.SaveFoodInput) (string, error) {
	if m.saveFn == nil {
		return "", domain.ErrInvalidInput
	}
	return m.saveFn(ctx, input)
}

func (m *mockCustomRepo) Get(ctx context.Context, id string) (*domain.NutritionRecord, error) {
	if m.getFn == nil {
		return nil, domain.ErrNotFound
	}
	return m.getFn(ctx, id)
}

func (m *mockCustomRepo) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if m.searchFn == nil {
		return nil, nil
	}
	return m.searchFn(ctx, query)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return cache.New(db, cache.DefaultTTLs())
}

// per100gRecord builds a per-100g record with the four required nutrients
// available.
func per100gRecord(foodID string, source domain.Source, name string, calories, protein, carbs, fat float64) *domain.NutritionRecord {
	nutrients := domain.NewNutrientMap()
	nutrients[domain.NutrientCalories] = domain.NutrientValue{Value: calories, Available: true}
	nutrients[domain.NutrientProtein] = domain.NutrientValue{Value: protein, Available: true}
	nutrients[domain.NutrientTotalCarbs] = domain.NutrientValue{Value: carbs, Available: true}
	nutrients[domain.NutrientTotalFat] = domain.NutrientValue{Value: fat, Available: true}
	return &domain.NutritionRecord{
		FoodID:      foodID,
		Source:      source,
		Name:        name,
		ServingSize: domain.ServingSize{Amount: 100, Unit: "g"},
		StorageMode: domain.StoragePer100g,
		Nutrients:   nutrients,
	}
}
