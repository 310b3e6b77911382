package web

import (
	"context"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// RawSearcher is the underlying web search call. Depending on the provider
// it yields either mapping-shaped results (snippet/body, title, link/href)
// or plain strings; the dispatcher accepts both.
type RawSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]any, error)
}

// Dispatcher normalizes raw web results into the common result shape. The
// underlying search has no native relevance score, so it fabricates
// descending rank-based scores.
type Dispatcher struct {
	client RawSearcher
}

func NewDispatcher(client RawSearcher) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Search(ctx context.Context, query string, params domain.SearchParameters) ([]domain.SearchResult, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 5
	}

	raw, err := d.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(raw))
	for idx, item := range raw {
		score := 1.0 - 0.1*float64(idx)
		switch v := item.(type) {
		case map[string]any:
			content := firstString(v, "snippet", "body")
			out = append(out, domain.SearchResult{
				Content: content,
				Score:   score,
				Metadata: map[string]any{
					"title": firstString(v, "title"),
					"link":  firstString(v, "link", "href"),
				},
				Source: domain.SourceWebSearch,
			})
		case string:
			out = append(out, domain.SearchResult{
				Content:  v,
				Score:    score,
				Metadata: map[string]any{},
				Source:   domain.SourceWebSearch,
			})
		}
	}
	return out, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
