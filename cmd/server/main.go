package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nutriscope/backend/config"
	httpDelivery "github.com/nutriscope/backend/internal/delivery/http"
	"github.com/nutriscope/backend/internal/infrastructure/cache"
	"github.com/nutriscope/backend/internal/infrastructure/customfood"
	"github.com/nutriscope/backend/internal/infrastructure/openfoodfacts"
	"github.com/nutriscope/backend/internal/infrastructure/store"
	"github.com/nutriscope/backend/internal/infrastructure/usda"
	"github.com/nutriscope/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting NutriScope Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Database: %s", cfg.Database.Path)

	// Initialize infrastructure dependencies
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ttls := cache.TTLConfig{
		USDA:          cfg.Cache.USDATTL,
		OpenFoodFacts: cfg.Cache.OpenFoodFactsTTL,
		Custom:        cfg.Cache.CustomTTL,
		Search:        cfg.Cache.SearchTTL,
	}
	dataCache := cache.New(db, ttls)
	log.Printf("Cache TTLs: usda=%s off=%s custom=%s search=%s",
		ttls.USDA, ttls.OpenFoodFacts, ttls.Custom, ttls.Search)

	usdaClient := usda.NewClient(dataCache, cfg.USDA.APIKey, cfg.USDA.BaseURL, cfg.USDA.Timeout)
	offClient := openfoodfacts.NewClient(dataCache, cfg.OpenFoodFacts.SearchURL, cfg.OpenFoodFacts.ProductURL, cfg.OpenFoodFacts.Timeout)
	customStore := customfood.NewStore(db, cfg.Cache.CustomTTL)

	log.Printf("USDA API configured: %s", cfg.USDA.BaseURL)
	log.Printf("Open Food Facts API configured: %s", cfg.OpenFoodFacts.SearchURL)

	// Initialize usecase layer
	searchService := usecase.NewSearchService(usdaClient, offClient, customStore, dataCache)
	nutritionService := usecase.NewNutritionService(usdaClient, offClient, customStore)
	mealService := usecase.NewMealService(nutritionService)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService, nutritionService, mealService, customStore)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
