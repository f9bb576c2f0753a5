package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nutriscope/backend/internal/domain"
)

// TTLConfig holds the per-namespace cache lifetimes. Authoritative
// government data lives longest, crowd-sourced data a week, search results a
// day, and user-declared custom foods are treated as long-lived local data.
type TTLConfig struct {
	USDA          time.Duration
	OpenFoodFacts time.Duration
	Custom        time.Duration
	Search        time.Duration
}

// DefaultTTLs mirrors the config defaults.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		USDA:          30 * 24 * time.Hour,
		OpenFoodFacts: 7 * 24 * time.Hour,
		Custom:        90 * 24 * time.Hour,
		Search:        24 * time.Hour,
	}
}

// Entry is one cached row.
type Entry struct {
	Key       string
	Payload   []byte
	CreatedAt int64
	ExpiresAt int64
}

// Cache is a SQLite-backed TTL cache for nutrition records and search
// results. Reads come in two modes: fresh-only and any-age (stale). Writes
// always overwrite the row for the same key; there is no other eviction.
type Cache struct {
	db   *sql.DB
	ttls TTLConfig

	// now is injectable for tests.
	now func() time.Time
}

// New creates a cache over an open database handle.
func New(db *sql.DB, ttls TTLConfig) *Cache {
	return &Cache{db: db, ttls: ttls, now: time.Now}
}

// NewWithClock creates a cache with an injected clock. Useful for tests that
// need to write entries as if from the past.
func NewWithClock(db *sql.DB, ttls TTLConfig, now func() time.Time) *Cache {
	return &Cache{db: db, ttls: ttls, now: now}
}

// DB returns the underlying database handle so callers sharing the database
// can layer another view over it.
func (c *Cache) DB() *sql.DB {
	return c.db
}

// isExpired reports whether a Unix-seconds expiry is in the past. An entry
// expiring exactly now counts as expired.
func isExpired(expiresAt, nowSeconds int64) bool {
	return nowSeconds >= expiresAt
}

// nutritionTTL returns the nutrition-cache TTL for a source.
func (c *Cache) nutritionTTL(source domain.Source) time.Duration {
	switch source {
	case domain.SourceUSDA:
		return c.ttls.USDA
	case domain.SourceOpenFoodFacts:
		return c.ttls.OpenFoodFacts
	case domain.SourceCustom:
		return c.ttls.Custom
	default:
		return c.ttls.OpenFoodFacts
	}
}

// GetNutrition returns the cached nutrition payload if present and not
// expired.
func (c *Cache) GetNutrition(ctx context.Context, source domain.Source, foodID string) ([]byte, bool, error) {
	return c.getFresh(ctx, "nutrition_cache", NutritionKey(source, foodID))
}

// GetNutritionStale returns the cached nutrition payload regardless of
// expiry. Absent only if the row is missing.
func (c *Cache) GetNutritionStale(ctx context.Context, source domain.Source, foodID string) ([]byte, bool, error) {
	return c.getStale(ctx, "nutrition_cache", NutritionKey(source, foodID))
}

// SetNutrition stores a nutrition payload with the source-dependent TTL,
// replacing any existing row for the same key.
func (c *Cache) SetNutrition(ctx context.Context, source domain.Source, foodID string, payload []byte) error {
	now := c.now().Unix()
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO nutrition_cache (cache_key, source, food_id, data, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		NutritionKey(source, foodID), string(source), foodID, string(payload),
		now, now+int64(c.nutritionTTL(source).Seconds()))
	if err != nil {
		return fmt.Errorf("failed to write nutrition cache: %w", err)
	}
	return nil
}

// GetSearchResults returns the cached search payload if present and not
// expired.
func (c *Cache) GetSearchResults(ctx context.Context, source domain.Source, query string) ([]byte, bool, error) {
	return c.getFresh(ctx, "search_cache", SearchKey(source, query))
}

// GetSearchResultsStale returns the cached search payload regardless of
// expiry.
func (c *Cache) GetSearchResultsStale(ctx context.Context, source domain.Source, query string) ([]byte, bool, error) {
	return c.getStale(ctx, "search_cache", SearchKey(source, query))
}

// SetSearchResults stores a search payload with the search TTL.
func (c *Cache) SetSearchResults(ctx context.Context, source domain.Source, query string, payload []byte) error {
	now := c.now().Unix()
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO search_cache (cache_key, source, query, data, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		SearchKey(source, query), string(source), normalizeQuery(query), string(payload),
		now, now+int64(c.ttls.Search.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to write search cache: %w", err)
	}
	return nil
}

func (c *Cache) getFresh(ctx context.Context, table, key string) ([]byte, bool, error) {
	entry, err := c.getEntry(ctx, table, key)
	if err != nil {
		return nil, false, err
	}
	if entry == nil || isExpired(entry.ExpiresAt, c.now().Unix()) {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (c *Cache) getStale(ctx context.Context, table, key string) ([]byte, bool, error) {
	entry, err := c.getEntry(ctx, table, key)
	if err != nil {
		return nil, false, err
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (c *Cache) getEntry(ctx context.Context, table, key string) (*Entry, error) {
	var (
		data      string
		createdAt int64
		expiresAt int64
	)
	// table is one of two fixed names, never caller input.
	query := fmt.Sprintf("SELECT data, created_at, expires_at FROM %s WHERE cache_key = ?", table)
	err := c.db.QueryRowContext(ctx, query, key).Scan(&data, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return &Entry{Key: key, Payload: []byte(data), CreatedAt: createdAt, ExpiresAt: expiresAt}, nil
}
