package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

func TestPostProcessOrderThresholdLimit(t *testing.T) {
	params := domain.SearchParameters{Limit: 2, ScoreThreshold: 0.5}
	results := []domain.SearchResult{
		{Content: "a", Score: 0.6},
		{Content: "b", Score: 0.9},
		{Content: "c", Score: 0.4},
		{Content: "d", Score: 0.7},
	}

	out := postProcessResults(results, params)
	if len(out) != 2 {
		t.Fatalf("expected 2 results after limit, got %d", len(out))
	}
	if out[0].Content != "b" || out[1].Content != "d" {
		t.Fatalf("expected [b d], got [%s %s]", out[0].Content, out[1].Content)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score > out[i-1].Score {
			t.Fatalf("scores must be non-increasing")
		}
	}
}

func TestPostProcessDedupOnContentPrefix(t *testing.T) {
	shared := strings.Repeat("x", 100)
	params := domain.SearchParameters{Limit: 10, ScoreThreshold: 0}
	results := []domain.SearchResult{
		{Content: shared + " first", Score: 0.6, Source: "vector-store"},
		{Content: shared + " second", Score: 0.9, Source: "keyword-index"},
		{Content: "unique", Score: 0.8},
	}

	out := postProcessResults(results, params)
	if len(out) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 results, got %d", len(out))
	}
	for _, r := range out {
		if strings.HasPrefix(r.Content, shared) && r.Source != "vector-store" {
			t.Fatalf("first occurrence must win, kept %s", r.Source)
		}
	}
}

func TestPostProcessDedupCountsRunes(t *testing.T) {
	// 100 han characters are 300 bytes; the key is 100 runes, so contents
	// diverging at rune 100 are distinct.
	prefix := strings.Repeat("检", 99)
	params := domain.SearchParameters{Limit: 10, ScoreThreshold: 0}
	results := []domain.SearchResult{
		{Content: prefix + "一 tail", Score: 0.9},
		{Content: prefix + "二 tail", Score: 0.8},
	}

	out := postProcessResults(results, params)
	if len(out) != 2 {
		t.Fatalf("contents differing inside the rune prefix must both survive, got %d", len(out))
	}
}

func TestPostProcessIdempotent(t *testing.T) {
	params := domain.SearchParameters{Limit: 3, ScoreThreshold: 0.3}
	results := []domain.SearchResult{
		{Content: "a", Score: 0.9},
		{Content: "b", Score: 0.2},
		{Content: "c", Score: 0.5},
		{Content: "a", Score: 0.7},
		{Content: "d", Score: 0.8},
	}

	once := postProcessResults(results, params)
	twice := postProcessResults(append([]domain.SearchResult(nil), once...), params)
	if len(once) != len(twice) {
		t.Fatalf("length changed on second pass: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Content != twice[i].Content || once[i].Score != twice[i].Score {
			t.Fatalf("result %d changed on second pass", i)
		}
	}
}

func TestPostProcessEmptyInput(t *testing.T) {
	out := postProcessResults(nil, domain.SearchParameters{Limit: 5, ScoreThreshold: 0.5})
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}
