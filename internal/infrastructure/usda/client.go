package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/nutriscope/backend/internal/domain"
	"github.com/nutriscope/backend/internal/infrastructure/cache"
)

// Client handles communication with the USDA FoodData Central API with
// cache-through reads. All upstream failures fall back to stale cache; a
// failed call is never retried within the same request.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	cache       *cache.Cache
}

// NewClient creates a new USDA API client.
func NewClient(c *cache.Cache, apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	// USDA allows 1000 requests per hour: 1000/3600 ≈ 0.278 requests/sec.
	limiter := rate.NewLimiter(rate.Limit(0.278), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
		cache:       c,
	}
}

// SearchFoods searches USDA FoodData Central, returning cached results when
// fresh and falling back to stale cache when the API is unreachable.
func (c *Client) SearchFoods(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
	if payload, ok, err := c.cache.GetSearchResults(ctx, domain.SourceUSDA, query); err != nil {
		return nil, "", err
	} else if ok {
		var results []domain.SearchResult
		if err := json.Unmarshal(payload, &results); err == nil {
			return results, domain.FreshnessCache, nil
		}
		log.Printf("[USDA] Discarding undecodable search cache entry for %q", query)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		log.Printf("[USDA] Rate limiter error: %v", err)
		return c.fallbackSearchResults(ctx, query)
	}

	params := url.Values{}
	params.Add("query", query)
	params.Add("api_key", c.apiKey)
	params.Add("pageSize", strconv.Itoa(maxSearchResults))
	reqURL := fmt.Sprintf("%s/foods/search?%s", c.baseURL, params.Encode())

	var data searchResponse
	if err := c.doJSONRequest(ctx, reqURL, &data); err != nil {
		log.Printf("[USDA] Search request failed: %v", err)
		return c.fallbackSearchResults(ctx, query)
	}

	results := normalizeSearchResults(&data)
	c.writeSearchCache(ctx, query, results)
	return results, domain.FreshnessLive, nil
}

// GetNutrition retrieves the normalized nutrition record for a USDA food id,
// using cache when available. Returns ErrNotFound when the id is absent from
// both the API and the stale cache.
func (c *Client) GetNutrition(ctx context.Context, fdcID string) (*domain.NutritionRecord, domain.Freshness, error) {
	if payload, ok, err := c.cache.GetNutrition(ctx, domain.SourceUSDA, fdcID); err != nil {
		return nil, "", err
	} else if ok {
		var record domain.NutritionRecord
		if err := json.Unmarshal(payload, &record); err == nil {
			return &record, domain.FreshnessCache, nil
		}
		log.Printf("[USDA] Discarding undecodable nutrition cache entry for %q", fdcID)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		log.Printf("[USDA] Rate limiter error: %v", err)
		return c.fallbackNutrition(ctx, fdcID)
	}

	params := url.Values{}
	params.Add("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/food/%s?%s", c.baseURL, url.PathEscape(fdcID), params.Encode())

	var data foodDetailResponse
	if err := c.doJSONRequest(ctx, reqURL, &data); err != nil {
		log.Printf("[USDA] Food detail request failed for %q: %v", fdcID, err)
		return c.fallbackNutrition(ctx, fdcID)
	}

	record := normalizeNutrition(&data)
	c.writeNutritionCache(ctx, fdcID, record)
	return record, domain.FreshnessLive, nil
}

// doJSONRequest executes a GET request and decodes the JSON body into out.
func (c *Client) doJSONRequest(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NutriScope/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) writeSearchCache(ctx context.Context, query string, results []domain.SearchResult) {
	payload, err := json.Marshal(results)
	if err == nil {
		err = c.cache.SetSearchResults(ctx, domain.SourceUSDA, query, payload)
	}
	if err != nil {
		// A cache write failure degrades caching, not the response.
		log.Printf("[USDA] Failed to cache search results for %q: %v", query, err)
	}
}

func (c *Client) writeNutritionCache(ctx context.Context, fdcID string, record *domain.NutritionRecord) {
	payload, err := json.Marshal(record)
	if err == nil {
		err = c.cache.SetNutrition(ctx, domain.SourceUSDA, fdcID, payload)
	}
	if err != nil {
		log.Printf("[USDA] Failed to cache nutrition for %q: %v", fdcID, err)
	}
}

func (c *Client) fallbackSearchResults(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
	payload, ok, err := c.cache.GetSearchResultsStale(ctx, domain.SourceUSDA, query)
	if err != nil {
		return nil, "", err
	}
	if ok {
		var results []domain.SearchResult
		if err := json.Unmarshal(payload, &results); err == nil {
			return results, domain.FreshnessStale, nil
		}
	}
	return []domain.SearchResult{}, domain.FreshnessStale, nil
}

func (c *Client) fallbackNutrition(ctx context.Context, fdcID string) (*domain.NutritionRecord, domain.Freshness, error) {
	payload, ok, err := c.cache.GetNutritionStale(ctx, domain.SourceUSDA, fdcID)
	if err != nil {
		return nil, "", err
	}
	if ok {
		var record domain.NutritionRecord
		if err := json.Unmarshal(payload, &record); err == nil {
			return &record, domain.FreshnessStale, nil
		}
	}
	return nil, domain.FreshnessStale, fmt.Errorf("%w: food id %q from source %q", domain.ErrNotFound, fdcID, domain.SourceUSDA)
}
