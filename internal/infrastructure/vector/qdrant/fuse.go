package qdrant

import (
	"sort"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// fuseWeighted merges the dense and sparse ranked lists into one, scoring
// each chunk as vectorWeight*denseScore + keywordWeight*sparseScore. A chunk
// seen in both lists keeps the richer record and accumulates both
// contributions.
func fuseWeighted(dense, lexical []domain.SearchResult, vectorWeight, keywordWeight float64) []domain.SearchResult {
	if vectorWeight <= 0 && keywordWeight <= 0 {
		vectorWeight, keywordWeight = 0.7, 0.3
	}
	if len(lexical) == 0 && vectorWeight > 0 {
		// Nothing to fuse; keep native dense scores.
		return dense
	}

	type candidate struct {
		result domain.SearchResult
		score  float64
	}

	acc := make(map[string]*candidate, len(dense)+len(lexical))
	order := make([]string, 0, len(dense)+len(lexical))

	add := func(list []domain.SearchResult, weight float64) {
		for _, r := range list {
			key := r.ChunkID
			if key == "" {
				key = r.Content
			}
			c, ok := acc[key]
			if !ok {
				c = &candidate{result: r}
				acc[key] = c
				order = append(order, key)
			}
			c.score += weight * r.Score
		}
	}

	add(dense, vectorWeight)
	add(lexical, keywordWeight)

	out := make([]domain.SearchResult, 0, len(order))
	for _, key := range order {
		c := acc[key]
		result := c.result
		result.Score = c.score
		out = append(out, result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
