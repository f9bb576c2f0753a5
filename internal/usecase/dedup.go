package usecase

import (
	"regexp"
	"strings"

	"github.com/nutriscope/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	punctuationRegex   = regexp.MustCompile(`[^\w\s]`)
	qualifierWordRegex = regexp.MustCompile(`\b(raw|cooked|fresh|frozen|dried|organic|natural)\b`)
	multiSpaceRegex    = regexp.MustCompile(`\s+`)
)

// wordOverlapThreshold is the shared-word fraction above which two names
// from different providers are considered the same food.
const wordOverlapThreshold = 0.8

// normalizeName prepares a food name for duplicate comparison: lowercase,
// punctuation stripped, preparation qualifiers removed, whitespace
// collapsed.
func normalizeName(name string) string {
	result := strings.ToLower(name)
	result = punctuationRegex.ReplaceAllString(result, "")
	result = qualifierWordRegex.ReplaceAllString(result, "")
	result = multiSpaceRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// wordOverlap returns the fraction of words shared between two normalized
// names, relative to the smaller word set.
func wordOverlap(a, b string) float64 {
	wordsA := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		wordsA[w] = true
	}
	wordsB := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		wordsB[w] = true
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	shared := 0
	for w := range wordsA {
		if wordsB[w] {
			shared++
		}
	}

	minSize := len(wordsA)
	if len(wordsB) < minSize {
		minSize = len(wordsB)
	}
	return float64(shared) / float64(minSize)
}

// isDuplicate reports whether two results from different providers refer to
// the same food.
func isDuplicate(a, b domain.SearchResult) bool {
	if a.Source == b.Source {
		return false
	}

	normA := normalizeName(a.Name)
	normB := normalizeName(b.Name)

	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return true
	}

	return wordOverlap(normA, normB) > wordOverlapThreshold
}

// deduplicateResults merges two providers' results, dropping secondary items
// that duplicate anything already kept. Primary items keep their original
// order, followed by surviving secondary items in theirs.
func deduplicateResults(primary, secondary []domain.SearchResult) []domain.SearchResult {
	merged := make([]domain.SearchResult, 0, len(primary)+len(secondary))
	merged = append(merged, primary...)

	for _, candidate := range secondary {
		dup := false
		for _, kept := range merged {
			if isDuplicate(kept, candidate) {
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, candidate)
		}
	}

	return merged
}
