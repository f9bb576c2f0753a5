package customfood

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/nutriscope/backend/internal/conversion"
	"github.com/nutriscope/backend/internal/domain"
)

// Match score tiers for custom food search: exact full-string match, prefix
// match, any other substring match.
const (
	scoreExact     = 100
	scorePrefix    = 75
	scoreSubstring = 50
)

// Store persists user-created custom foods with TTL expiration. Rows are
// keyed by a deterministic id derived from name and brand, so saving the
// same food twice overwrites rather than duplicates.
type Store struct {
	db  *sql.DB
	ttl time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewStore creates a custom food store over an open database handle. ttl is
// how long saved foods stay retrievable.
func NewStore(db *sql.DB, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// GenerateID derives the deterministic id for a name and optional brand.
// Identical name+brand always yields the same id.
func GenerateID(name, brand string) string {
	normalized := strings.ToLower(name) + "|" + strings.ToLower(brand)
	sum := sha256.Sum256([]byte(normalized))
	return "custom:" + hex.EncodeToString(sum[:])
}

// round2 rounds to two decimal places, the save-time rescale precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// validateInput checks the serving amount and every supplied nutrient value.
func validateInput(input domain.SaveFoodInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: food name is required", domain.ErrInvalidInput)
	}
	if input.ServingSize.Amount <= 0 {
		return fmt.Errorf("%w: serving size amount %v must be greater than 0",
			domain.ErrInvalidInput, input.ServingSize.Amount)
	}

	for _, key := range domain.MandatoryNutrients {
		if _, ok := input.Nutrients[key]; !ok {
			return fmt.Errorf("%w: missing required nutrient %q", domain.ErrInvalidInput, key)
		}
	}
	for key, value := range input.Nutrients {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: nutrient %q must be a finite number", domain.ErrInvalidInput, key)
		}
		if value < 0 {
			return fmt.Errorf("%w: nutrient %q is %v, must be non-negative",
				domain.ErrInvalidInput, key, value)
		}
	}
	return nil
}

// normalizeRecord rescales the declared nutrients onto canonical storage:
// per-100g for weight-based servings, per-one-unit otherwise. Values are
// rounded to two decimals during the rescale.
func normalizeRecord(id string, input domain.SaveFoodInput) (*domain.NutritionRecord, error) {
	var factor float64
	var serving domain.ServingSize
	var mode domain.StorageMode

	if conversion.IsWeightUnit(input.ServingSize.Unit) {
		servingGrams, err := conversion.WeightToGrams(input.ServingSize.Amount, input.ServingSize.Unit)
		if err != nil {
			return nil, err
		}
		factor = 100 / servingGrams
		serving = domain.ServingSize{Amount: 100, Unit: "g"}
		mode = domain.StoragePer100g
	} else {
		factor = 1 / input.ServingSize.Amount
		serving = domain.ServingSize{Amount: 1, Unit: input.ServingSize.Unit}
		mode = domain.StoragePerServing
	}

	nutrients := domain.NewNutrientMap()
	for key, value := range input.Nutrients {
		nutrients[key] = domain.NutrientValue{Value: round2(value * factor), Available: true}
	}

	return &domain.NutritionRecord{
		FoodID:      id,
		Source:      domain.SourceCustom,
		Name:        input.Name,
		ServingSize: serving,
		StorageMode: mode,
		Nutrients:   nutrients,
	}, nil
}

// Save validates and persists a custom food, returning its deterministic
// id. A second save with the same name+brand overwrites the stored record.
// Expired rows are purged opportunistically on every save.
func (s *Store) Save(ctx context.Context, input domain.SaveFoodInput) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}

	id := GenerateID(input.Name, input.Brand)
	now := s.now().Unix()

	s.purgeExpired(ctx, now)

	record, err := normalizeRecord(id, input)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode custom food: %w", err)
	}

	var brand, category any
	if input.Brand != "" {
		brand = input.Brand
	}
	if input.Category != "" {
		category = input.Category
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO custom_foods (id, name, brand, category, data, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.Name, brand, category, string(payload), now, now+int64(s.ttl.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to save custom food: %w", err)
	}

	return id, nil
}

// Get retrieves a custom food by id. Expired rows are treated as absent.
func (s *Store) Get(ctx context.Context, id string) (*domain.NutritionRecord, error) {
	var (
		data      string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, expires_at FROM custom_foods WHERE id = ?", id,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: custom food %q", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read custom food: %w", err)
	}

	if s.now().Unix() >= expiresAt {
		return nil, fmt.Errorf("%w: custom food %q", domain.ErrNotFound, id)
	}

	var record domain.NutritionRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("%w: undecodable custom food %q", domain.ErrMalformedData, id)
	}
	return &record, nil
}

// escapeLikePattern escapes the LIKE metacharacters %, _ and \ so user text
// matches literally.
func escapeLikePattern(input string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(input)
}

// Search matches query case-insensitively against stored names and brands.
// Exact full-string matches score highest, prefix matches next, other
// substring matches lowest. Expired rows are excluded.
func (s *Store) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	now := s.now().Unix()
	pattern := "%" + escapeLikePattern(query) + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(brand, '') FROM custom_foods
		 WHERE (name LIKE ? ESCAPE '\' COLLATE NOCASE
		        OR brand LIKE ? ESCAPE '\' COLLATE NOCASE)
		   AND expires_at > ?`,
		pattern, pattern, now)
	if err != nil {
		return nil, fmt.Errorf("failed to search custom foods: %w", err)
	}
	defer rows.Close()

	queryLower := strings.ToLower(query)
	var results []domain.SearchResult

	for rows.Next() {
		var id, name, brand string
		if err := rows.Scan(&id, &name, &brand); err != nil {
			return nil, fmt.Errorf("failed to scan custom food row: %w", err)
		}

		nameLower := strings.ToLower(name)
		brandLower := strings.ToLower(brand)

		score := float64(scoreSubstring)
		switch {
		case nameLower == queryLower || brandLower == queryLower:
			score = scoreExact
		case strings.HasPrefix(nameLower, queryLower) || strings.HasPrefix(brandLower, queryLower):
			score = scorePrefix
		}

		results = append(results, domain.SearchResult{
			ID:         id,
			Source:     domain.SourceCustom,
			Name:       name,
			Brand:      brand,
			MatchScore: score,
		})
	}
	return results, rows.Err()
}

// purgeExpired physically deletes expired rows to bound table growth.
func (s *Store) purgeExpired(ctx context.Context, nowSeconds int64) {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM custom_foods WHERE expires_at < ?", nowSeconds); err != nil {
		log.Printf("[STORE] Failed to purge expired custom foods: %v", err)
	}
}
