package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nutriscope/backend/config"
	"github.com/nutriscope/backend/internal/domain"
	"github.com/nutriscope/backend/internal/infrastructure/cache"
	"github.com/nutriscope/backend/internal/infrastructure/store"
	"github.com/nutriscope/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

type stubSourceClient struct {
	searchFn    func(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error)
	nutritionFn func(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error)
}

func (s *stubSourceClient) SearchFoods(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
	if s.searchFn == nil {
		return []domain.SearchResult{}, domain.FreshnessLive, nil
	}
	return s.searchFn(ctx, query)
}

func (s *stubSourceClient) GetNutrition(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error) {
	if s.nutritionFn == nil {
		return nil, domain.FreshnessStale, domain.ErrNotFound
	}
	return s.nutritionFn(ctx, foodID)
}

type stubCustomRepo struct {
	saveFn   func(ctx context.Context, input domain.SaveFoodInput) (string, error)
	getFn    func(ctx context.Context, id string) (*domain.NutritionRecord, error)
	searchFn func(ctx context.Context, query string) ([]domain.SearchResult, error)
}

func (s *stubCustomRepo) Save(ctx context.Context, input domain.SaveFoodInput) (string, error) {
	if s.saveFn == nil {
		return "", domain.ErrInvalidInput
	}
	return s.saveFn(ctx, input)
}

func (s *stubCustomRepo) Get(ctx context.Context, id string) (*domain.NutritionRecord, error) {
	if s.getFn == nil {
		return nil, domain.ErrNotFound
	}
	return s.getFn(ctx, id)
}

func (s *stubCustomRepo) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(ctx, query)
}

func bananaRecord() *domain.NutritionRecord {
	nutrients := domain.NewNutrientMap()
	nutrients[domain.NutrientCalories] = domain.NutrientValue{Value: 89, Available: true}
	nutrients[domain.NutrientProtein] = domain.NutrientValue{Value: 1.1, Available: true}
	nutrients[domain.NutrientTotalCarbs] = domain.NutrientValue{Value: 22.8, Available: true}
	nutrients[domain.NutrientTotalFat] = domain.NutrientValue{Value: 0.3, Available: true}
	return &domain.NutritionRecord{
		FoodID:      "171705",
		Source:      domain.SourceUSDA,
		Name:        "Banana, raw",
		ServingSize: domain.ServingSize{Amount: 100, Unit: "g"},
		StorageMode: domain.StoragePer100g,
		Nutrients:   nutrients,
	}
}

// setupTestRouter wires a router over stubbed providers and a real SQLite
// cache in a temp directory.
func setupTestRouter(t *testing.T, usda, off domain.SourceClient, custom domain.CustomFoodRepository) *gin.Engine {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	c := cache.New(db, cache.DefaultTTLs())

	searchSvc := usecase.NewSearchService(usda, off, custom, c)
	nutritionSvc := usecase.NewNutritionService(usda, off, custom)
	mealSvc := usecase.NewMealService(nutritionSvc)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}

	return SetupRouter(cfg, NewHandler(searchSvc, nutritionSvc, mealSvc, custom))
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheckEndpoint(t *testing.T) {
	router := setupTestRouter(t, &stubSourceClient{}, &stubSourceClient{}, &stubCustomRepo{})

	w := getPath(router, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", response["status"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	usda := &stubSourceClient{searchFn: func(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
		return []domain.SearchResult{{ID: "171705", Source: domain.SourceUSDA, Name: "Banana, raw", MatchScore: 500}}, domain.FreshnessLive, nil
	}}

	t.Run("returns results for a valid query", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/foods/search", gin.H{"query": "banana", "source": "usda"})

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}
		var resp usecase.SearchResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Results) != 1 || resp.Results[0].ID != "171705" {
			t.Errorf("Results = %v, want the stubbed result", resp.Results)
		}
		if resp.Freshness != domain.FreshnessLive {
			t.Errorf("Freshness = %s, want live", resp.Freshness)
		}
	})

	t.Run("defaults to searching all sources", func(t *testing.T) {
		off := &stubSourceClient{searchFn: func(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
			return []domain.SearchResult{{ID: "a", Source: domain.SourceOpenFoodFacts, Name: "Plantain Crisps"}}, domain.FreshnessLive, nil
		}}
		router := setupTestRouter(t, usda, off, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/foods/search", gin.H{"query": "banana"})

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}
		var resp usecase.SearchResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Results) != 2 {
			t.Errorf("len(Results) = %d, want merged results from both providers", len(resp.Results))
		}
	})

	t.Run("missing query is a bad request", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/foods/search", gin.H{"source": "usda"})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown source is a bad request", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/foods/search", gin.H{"query": "banana", "source": "mystery"})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestNutritionEndpoint(t *testing.T) {
	usda := &stubSourceClient{nutritionFn: func(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error) {
		return bananaRecord(), domain.FreshnessLive, nil
	}}

	t.Run("returns scaled nutrients", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := getPath(router, "/api/v1/nutrition/usda/171705?amount=150&unit=g")

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}
		var result usecase.NutritionResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if got := result.Nutrients[domain.NutrientCalories].Value; got != 133.5 {
			t.Errorf("calories = %v, want 133.5", got)
		}
		if result.ServingDescription != "150g of Banana, raw" {
			t.Errorf("ServingDescription = %q", result.ServingDescription)
		}
	})

	t.Run("missing amount is a bad request", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := getPath(router, "/api/v1/nutrition/usda/171705?unit=g")

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("unsupported unit reports the supported list", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := getPath(router, "/api/v1/nutrition/usda/171705?amount=1&unit=stone")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if _, ok := body["supportedUnits"]; !ok {
			t.Errorf("body = %v, want supportedUnits listed", body)
		}
	})

	t.Run("unknown food is not found", func(t *testing.T) {
		missing := &stubSourceClient{nutritionFn: func(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error) {
			return nil, domain.FreshnessStale, domain.ErrNotFound
		}}
		router := setupTestRouter(t, missing, &stubSourceClient{}, &stubCustomRepo{})

		w := getPath(router, "/api/v1/nutrition/usda/999999?amount=100&unit=g")

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("descriptive unit without portions is unprocessable", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := getPath(router, "/api/v1/nutrition/usda/171705?amount=1&unit=piece")

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Status = %d, want %d, body %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
		}
	})
}

func TestMealEndpoint(t *testing.T) {
	usda := &stubSourceClient{nutritionFn: func(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error) {
		return bananaRecord(), domain.FreshnessLive, nil
	}}

	t.Run("aggregates meal items", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/meals/calculate", gin.H{
			"items": []gin.H{
				{"foodId": "171705", "source": "usda", "amount": 100, "unit": "g"},
				{"foodId": "171705", "source": "usda", "amount": 100, "unit": "g"},
			},
		})

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}
		var result usecase.MealResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if got := result.Totals[domain.NutrientCalories].Value; got != 178.0 {
			t.Errorf("total calories = %v, want 178.0", got)
		}
		if got := result.Coverage[domain.NutrientCalories]; got != domain.CoverageFull {
			t.Errorf("calories coverage = %s, want full", got)
		}
	})

	t.Run("missing items is a bad request", func(t *testing.T) {
		router := setupTestRouter(t, usda, &stubSourceClient{}, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/meals/calculate", gin.H{})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("a failing item surfaces its position", func(t *testing.T) {
		missing := &stubSourceClient{nutritionFn: func(ctx context.Context, foodID string) (*domain.NutritionRecord, domain.Freshness, error) {
			return nil, domain.FreshnessStale, domain.ErrNotFound
		}}
		router := setupTestRouter(t, missing, &stubSourceClient{}, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/meals/calculate", gin.H{
			"items": []gin.H{
				{"foodId": "999999", "source": "usda", "amount": 100, "unit": "g"},
			},
		})

		if w.Code != http.StatusNotFound {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		msg, _ := body["error"].(string)
		if msg == "" {
			t.Fatal("error message missing from body")
		}
	})
}

func TestCustomFoodEndpoints(t *testing.T) {
	input := gin.H{
		"name":        "Grandma's Granola",
		"servingSize": gin.H{"amount": 50, "unit": "g"},
		"nutrients": gin.H{
			"calories":      210,
			"protein_g":     6,
			"total_carbs_g": 30,
			"total_fat_g":   8,
		},
	}

	t.Run("saving returns the deterministic id", func(t *testing.T) {
		custom := &stubCustomRepo{saveFn: func(ctx context.Context, in domain.SaveFoodInput) (string, error) {
			if in.Name != "Grandma's Granola" {
				t.Errorf("Name = %q", in.Name)
			}
			return "custom:abc123", nil
		}}
		router := setupTestRouter(t, &stubSourceClient{}, &stubSourceClient{}, custom)

		w := postJSON(t, router, "/api/v1/custom-foods", input)

		if w.Code != http.StatusCreated {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusCreated, w.Body.String())
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if body["id"] != "custom:abc123" {
			t.Errorf("id = %v, want custom:abc123", body["id"])
		}
	})

	t.Run("invalid payload is a bad request", func(t *testing.T) {
		router := setupTestRouter(t, &stubSourceClient{}, &stubSourceClient{}, &stubCustomRepo{})

		w := postJSON(t, router, "/api/v1/custom-foods", gin.H{"brand": "no name"})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejected input is a bad request", func(t *testing.T) {
		custom := &stubCustomRepo{saveFn: func(ctx context.Context, in domain.SaveFoodInput) (string, error) {
			return "", domain.ErrInvalidInput
		}}
		router := setupTestRouter(t, &stubSourceClient{}, &stubSourceClient{}, custom)

		w := postJSON(t, router, "/api/v1/custom-foods", input)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("fetching an existing food", func(t *testing.T) {
		custom := &stubCustomRepo{getFn: func(ctx context.Context, id string) (*domain.NutritionRecord, error) {
			return &domain.NutritionRecord{FoodID: id, Source: domain.SourceCustom, Name: "Granola"}, nil
		}}
		router := setupTestRouter(t, &stubSourceClient{}, &stubSourceClient{}, custom)

		w := getPath(router, "/api/v1/custom-foods/custom:abc123")

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var record domain.NutritionRecord
		if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if record.Name != "Granola" {
			t.Errorf("Name = %q, want Granola", record.Name)
		}
	})

	t.Run("fetching an unknown food is not found", func(t *testing.T) {
		router := setupTestRouter(t, &stubSourceClient{}, &stubSourceClient{}, &stubCustomRepo{})

		w := getPath(router, "/api/v1/custom-foods/custom:missing")

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
