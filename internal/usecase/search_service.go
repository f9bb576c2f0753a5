package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nutriscope/backend/internal/domain"
	"github.com/nutriscope/backend/internal/infrastructure/cache"
)

// SearchResponse is the result of a food search across one or more sources.
type SearchResponse struct {
	Results   []domain.SearchResult `json:"results"`
	Freshness domain.Freshness      `json:"dataFreshness"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// SearchService answers food searches against the two upstream providers
// and the local custom food store.
type SearchService struct {
	usda   domain.SourceClient
	off    domain.SourceClient
	custom domain.CustomFoodRepository
	cache  *cache.Cache
}

// NewSearchService creates a search service with its dependencies.
func NewSearchService(usda, off domain.SourceClient, custom domain.CustomFoodRepository, c *cache.Cache) *SearchService {
	return &SearchService{usda: usda, off: off, custom: custom, cache: c}
}

// SearchFood searches the requested source. SourceAll queries both upstream
// providers concurrently, merges and deduplicates their results (provider
// order preserved, government data first), and caches the combined list.
// One provider's failure never blocks or discards the other's results.
func (s *SearchService) SearchFood(ctx context.Context, query string, source domain.Source) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrInvalidInput)
	}

	switch source {
	case domain.SourceUSDA:
		return s.searchOne(ctx, s.usda, "USDA", query)
	case domain.SourceOpenFoodFacts:
		return s.searchOne(ctx, s.off, "Open Food Facts", query)
	case domain.SourceCustom:
		results, err := s.custom.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return &SearchResponse{Results: results, Freshness: domain.FreshnessLive}, nil
	case domain.SourceAll:
		return s.searchAll(ctx, query)
	default:
		return nil, fmt.Errorf("%w: unknown search source %q", domain.ErrInvalidInput, source)
	}
}

func (s *SearchService) searchOne(ctx context.Context, client domain.SourceClient, label, query string) (*SearchResponse, error) {
	results, freshness, err := client.SearchFoods(ctx, query)
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{Results: results, Freshness: freshness}
	if freshness == domain.FreshnessStale {
		resp.Warnings = []string{fmt.Sprintf("Using cached data; %s API was unavailable.", label)}
	}
	return resp, nil
}

func (s *SearchService) searchAll(ctx context.Context, query string) (*SearchResponse, error) {
	// The deduped merge is cached under the "all" pseudo-source tag.
	if payload, ok, err := s.cache.GetSearchResults(ctx, domain.SourceAll, query); err != nil {
		return nil, err
	} else if ok {
		var results []domain.SearchResult
		if err := json.Unmarshal(payload, &results); err == nil {
			return &SearchResponse{Results: results, Freshness: domain.FreshnessCache}, nil
		}
		log.Printf("[SEARCH] Discarding undecodable combined cache entry for %q", query)
	}

	var (
		usdaResults, offResults     []domain.SearchResult
		usdaFreshness, offFreshness domain.Freshness
		usdaErr, offErr             error
	)

	// Both providers are queried concurrently and settle independently.
	// Goroutines always return nil so one failure never cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		usdaResults, usdaFreshness, usdaErr = s.usda.SearchFoods(ctx, query)
		return nil
	})
	g.Go(func() error {
		offResults, offFreshness, offErr = s.off.SearchFoods(ctx, query)
		return nil
	})
	g.Wait()

	freshness := domain.FreshnessLive
	var warnings []string

	if usdaErr != nil {
		warnings = append(warnings, "USDA source was unavailable; results may be incomplete.")
	} else {
		freshness = domain.LeastFresh(freshness, usdaFreshness)
		if usdaFreshness == domain.FreshnessStale {
			warnings = append(warnings, "Using cached data for USDA; API was unavailable.")
		}
	}

	if offErr != nil {
		warnings = append(warnings, "Open Food Facts source was unavailable; results may be incomplete.")
	} else {
		freshness = domain.LeastFresh(freshness, offFreshness)
		if offFreshness == domain.FreshnessStale {
			warnings = append(warnings, "Using cached data for Open Food Facts; API was unavailable.")
		}
	}

	results := deduplicateResults(usdaResults, offResults)

	if payload, err := json.Marshal(results); err == nil {
		if err := s.cache.SetSearchResults(ctx, domain.SourceAll, query, payload); err != nil {
			log.Printf("[SEARCH] Failed to cache combined results for %q: %v", query, err)
		}
	}

	return &SearchResponse{Results: results, Freshness: freshness, Warnings: warnings}, nil
}
