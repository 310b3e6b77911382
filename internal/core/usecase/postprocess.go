package usecase

import (
	"sort"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// dedupKeyLength is the content prefix (in runes) used as the dedup key.
const dedupKeyLength = 100

// postProcessResults applies the uniform pipeline to any backend's raw
// results: dedup by content prefix, stable sort by descending score, drop
// results under the threshold, truncate to the limit. Truncation runs last
// so an early cutoff cannot defeat sorting or filtering. The pipeline is
// idempotent.
func postProcessResults(results []domain.SearchResult, params domain.SearchParameters) []domain.SearchResult {
	seen := make(map[string]struct{}, len(results))
	unique := make([]domain.SearchResult, 0, len(results))
	for _, result := range results {
		key := contentKey(result.Content)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, result)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	filtered := unique[:0]
	for _, result := range unique {
		if result.Score >= params.ScoreThreshold {
			filtered = append(filtered, result)
		}
	}

	if params.Limit > 0 && len(filtered) > params.Limit {
		filtered = filtered[:params.Limit]
	}
	return filtered
}

func contentKey(content string) string {
	runes := []rune(content)
	if len(runes) > dedupKeyLength {
		runes = runes[:dedupKeyLength]
	}
	return string(runes)
}
