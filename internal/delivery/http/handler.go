package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nutriscope/backend/internal/domain"
	"github.com/nutriscope/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search    *usecase.SearchService
	nutrition *usecase.NutritionService
	meal      *usecase.MealService
	custom    domain.CustomFoodRepository
}

// NewHandler creates a new HTTP handler
func NewHandler(search *usecase.SearchService, nutrition *usecase.NutritionService, meal *usecase.MealService, custom domain.CustomFoodRepository) *Handler {
	return &Handler{search: search, nutrition: nutrition, meal: meal, custom: custom}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "nutriscope-backend",
		"version": "1.0.0",
	})
}

type searchRequest struct {
	Query  string `json:"query" binding:"required"`
	Source string `json:"source"`
}

// SearchFood handles food search requests across one or all sources.
func (h *Handler) SearchFood(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	source := domain.Source(req.Source)
	if req.Source == "" {
		source = domain.SourceAll
	}

	resp, err := h.search.SearchFood(c.Request.Context(), req.Query, source)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type nutritionQuery struct {
	Amount float64 `form:"amount" binding:"required"`
	Unit   string  `form:"unit" binding:"required"`
}

// GetNutrition handles scaled nutrition lookups for a single food.
func (h *Handler) GetNutrition(c *gin.Context) {
	var q nutritionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and unit query parameters are required"})
		return
	}

	result, err := h.nutrition.GetNutrition(c.Request.Context(), usecase.NutritionRequest{
		FoodID: c.Param("id"),
		Source: domain.Source(c.Param("source")),
		Amount: q.Amount,
		Unit:   q.Unit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type mealRequest struct {
	Items []usecase.MealItem `json:"items" binding:"required"`
}

// CalculateMeal handles meal aggregation requests.
func (h *Handler) CalculateMeal(c *gin.Context) {
	var req mealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items are required"})
		return
	}

	result, err := h.meal.CalculateMeal(c.Request.Context(), req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SaveCustomFood handles creating or overwriting a user-declared food.
func (h *Handler) SaveCustomFood(c *gin.Context) {
	var input domain.SaveFoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid custom food payload: " + err.Error()})
		return
	}

	id, err := h.custom.Save(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetCustomFood returns the stored record for a custom food id.
func (h *Handler) GetCustomFood(c *gin.Context) {
	record, err := h.custom.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// respondError maps domain errors onto HTTP status codes. Structured
// conversion errors carry their extra context into the body so clients can
// present the supported units or available portions.
func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}

	var unsupported *domain.UnsupportedUnitError
	if errors.As(err, &unsupported) {
		body["supportedUnits"] = unsupported.Supported
	}
	var conv *domain.ConversionError
	if errors.As(err, &conv) && len(conv.AvailablePortions) > 0 {
		body["availablePortions"] = conv.AvailablePortions
	}

	c.JSON(statusFor(err), body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedUnit),
		errors.Is(err, domain.ErrUnitMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingConversionData),
		errors.Is(err, domain.ErrAmbiguousConversion),
		errors.Is(err, domain.ErrMalformedData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
