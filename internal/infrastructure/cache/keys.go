package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/nutriscope/backend/internal/domain"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// normalizeQuery lowercases, trims, and collapses internal whitespace so
// cosmetic query variations map to one cache entry.
func normalizeQuery(query string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(strings.ToLower(query), " "))
}

// hashQuery hashes a normalized query. The hash bounds key length and keeps
// arbitrary query text from colliding across sources.
func hashQuery(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NutritionKey builds the cache key for a nutrition entry.
func NutritionKey(source domain.Source, foodID string) string {
	return fmt.Sprintf("%s:%s", source, foodID)
}

// SearchKey builds the cache key for a search entry from the source tag and
// the normalized query.
func SearchKey(source domain.Source, query string) string {
	return fmt.Sprintf("%s:%s", source, hashQuery(normalizeQuery(query)))
}
