package openfoodfacts

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

const userAgent = "NutriScope/1.0 (https://github.com/nutriscope/backend)"

// Client handles communication with the Open Food Facts API with
// cache-through reads. All upstream failures fall back to stale cache; a
// failed call is never retried within the same request.
type Client struct {
	httpClient  *http.Client
	searchURL   string
	productURL  string
	rateLimiter *rate.Limiter
	cache       *cache.Cache
}

// NewClient creates a new Open Food Facts client. searchURL and productURL
// point at the cgi search endpoint and the v2 product endpoint.
func NewClient(c *cache.Cache, searchURL, productURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	// Open Food Facts asks bulk consumers to stay under ~100 req/min.
	limiter := rate.NewLimiter(rate.Limit(1.5), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		searchURL:   searchURL,
		productURL:  productURL,
		rateLimiter: limiter,
		cache:       c,
	}
}

// SearchFoods searches Open Food Facts, returning cached results when fresh
// and falling back to stale cache when the API is unreachable.
func (c *Client) SearchFoods(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
	if payload, ok, err := c.cache.GetSearchResults(ctx, domain.SourceOpenFoodFacts, query); err != nil {
		return nil, "", err
	} else if ok {
		var results []domain.SearchResult
		if err := json.Unmarshal(payload, &results); err == nil {
			return results, domain.FreshnessCache, nil
		}
		log.Printf("[OFF] Discarding undecodable search cache entry for %q", query)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		log.Printf("[OFF] Rate limiter error: %v", err)
		return c.fallbackSearchResults(ctx, query)
	}

	params := url.Values{}
	params.Add("search_terms", query)
	params.Add("json", "1")
	params.Add("page_size", strconv.Itoa(maxSearchResults))
	reqURL := fmt.Sprintf("%s?%s", c.searchURL, params.Encode())

	var data searchResponse
	if err := c.doJSONRequest(ctx, reqURL, &data); err != nil {
		log.Printf("[OFF] Search request failed: %v", err)
		return c.fallbackSearchResults(ctx, query)
	}

	results := normalizeSearchResults(&data)
	c.writeSearchCache(ctx, query, results)
	return results, domain.FreshnessLive, nil
}

// GetNutrition retrieves the normalized nutrition record for an Open Food
// Facts product code, using cache when available. Returns ErrNotFound when
// the code is absent from both the API and the stale cache.
func (c *Client) GetNutrition(ctx context.Context, productID string) (*domain.NutritionRecord, domain.Freshness, error) {
	if payload, ok, err := c.cache.GetNutrition(ctx, domain.SourceOpenFoodFacts, productID); err != nil {
		return nil, "", err
	} else if ok {
		var record domain.NutritionRecord
		if err := json.Unmarshal(payload, &record); err == nil {
			return &record, domain.FreshnessCache, nil
		}
		log.Printf("[OFF] Discarding undecodable nutrition cache entry for %q", productID)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		log.Printf("[OFF] Rate limiter error: %v", err)
		return c.fallbackNutrition(ctx, productID)
	}

	reqURL := fmt.Sprintf("%s/%s.json", c.productURL, url.PathEscape(productID))

	var data productResponse
	if err := c.doJSONRequest(ctx, reqURL, &data); err != nil {
		log.Printf("[OFF] Product request failed for %q: %v", productID, err)
		return c.fallbackNutrition(ctx, productID)
	}

	// status 0 is the provider's explicit "not found" signal.
	if data.Status == 0 || data.Product == nil {
		return c.fallbackNutrition(ctx, productID)
	}

	record := normalizeNutrition(data.Product)
	c.writeNutritionCache(ctx, productID, record)
	return record, domain.FreshnessLive, nil
}

func (c *Client) doJSONRequest(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

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
		err = c.cache.SetSearchResults(ctx, domain.SourceOpenFoodFacts, query, payload)
	}
	if err != nil {
		log.Printf("[OFF] Failed to cache search results for %q: %v", query, err)
	}
}

func (c *Client) writeNutritionCache(ctx context.Context, productID string, record *domain.NutritionRecord) {
	payload, err := json.Marshal(record)
	if err == nil {
		err = c.cache.SetNutrition(ctx, domain.SourceOpenFoodFacts, productID, payload)
	}
	if err != nil {
		log.Printf("[OFF] Failed to cache nutrition for %q: %v", productID, err)
	}
}

func (c *Client) fallbackSearchResults(ctx context.Context, query string) ([]domain.SearchResult, domain.Freshness, error) {
	payload, ok, err := c.cache.GetSearchResultsStale(ctx, domain.SourceOpenFoodFacts, query)
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

func (c *Client) fallbackNutrition(ctx context.Context, productID string) (*domain.NutritionRecord, domain.Freshness, error) {
	payload, ok, err := c.cache.GetNutritionStale(ctx, domain.SourceOpenFoodFacts, productID)
	if err != nil {
		return nil, "", err
	}
	if ok {
		var record domain.NutritionRecord
		if err := json.Unmarshal(payload, &record); err == nil {
			return &record, domain.FreshnessStale, nil
		}
	}
	return nil, domain.FreshnessStale, fmt.Errorf("%w: food id %q from source %q", domain.ErrNotFound, productID, domain.SourceOpenFoodFacts)
}
