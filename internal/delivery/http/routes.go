package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nutriscope/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/foods/search", handler.SearchFood)
		v1.GET("/nutrition/:source/:id", handler.GetNutrition)
		v1.POST("/meals/calculate", handler.CalculateMeal)

		custom := v1.Group("/custom-foods")
		{
			custom.POST("", handler.SaveCustomFood)
			custom.GET("/:id", handler.GetCustomFood)
		}
	}

	return router
}
