package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
	"github.com/kirillkom/retrieval-agent/internal/core/ports"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/resilience"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"

	recentWindow = 7 * 24 * time.Hour
)

// Client is the vector-store dispatcher. It serves both the vector strategy
// (dense search) and the hybrid strategy (dense plus sparse lexical search
// fused client-side with the plan's weights).
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	embedder   ports.Embedder
	executor   *resilience.Executor
}

func New(baseURL, collection string, embedder ports.Embedder, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		embedder:   embedder,
		executor:   executor,
	}
}

func (c *Client) Search(
	ctx context.Context,
	query string,
	filter domain.SearchFilter,
	params domain.SearchParameters,
) ([]domain.SearchResult, error) {
	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body := map[string]any{
		"vector": map[string]any{
			"name":   denseVectorName,
			"vector": vector,
		},
		"limit":        searchLimit(params),
		"with_payload": true,
	}
	if native := buildFilter(filter, time.Now()); native != nil {
		body["filter"] = native
	}
	return c.searchPoints(ctx, "qdrant.search", body)
}

// SearchHybrid runs dense and sparse searches against the same collection
// and fuses the two ranked lists with the plan's vector/keyword weights.
func (c *Client) SearchHybrid(
	ctx context.Context,
	query string,
	filter domain.SearchFilter,
	params domain.SearchParameters,
) ([]domain.SearchResult, error) {
	dense, err := c.Search(ctx, query, filter, params)
	if err != nil {
		return nil, err
	}

	sparse := encodeSparseQuery(query)
	var lexical []domain.SearchResult
	if len(sparse.Indices) > 0 {
		body := map[string]any{
			"vector": map[string]any{
				"name":   sparseVectorName,
				"vector": sparse,
			},
			"limit":        searchLimit(params),
			"with_payload": true,
		}
		if native := buildFilter(filter, time.Now()); native != nil {
			body["filter"] = native
		}
		lexical, err = c.searchPoints(ctx, "qdrant.search_sparse", body)
		if err != nil {
			return nil, err
		}
	}

	return fuseWeighted(dense, lexical, params.VectorWeight, params.KeywordWeight), nil
}

func (c *Client) searchPoints(ctx context.Context, operation string, body map[string]any) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	call := func(ctx context.Context) error {
		results, err := c.doSearch(ctx, body)
		if err != nil {
			return err
		}
		out = results
		return nil
	}

	if c.executor != nil {
		if err := c.executor.Execute(ctx, operation, call, resilience.ClassifyHTTPError); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := call(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doSearch(ctx context.Context, reqBody map[string]any) ([]domain.SearchResult, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &resilience.HTTPStatusError{
			Backend:    "qdrant",
			Operation:  "search",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		payload := r.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		out = append(out, domain.SearchResult{
			Content:  getStringPayload(payload, "content"),
			Score:    r.Score,
			Metadata: payload,
			Source:   domain.SourceVectorStore,
			ChunkID:  stringifyID(r.ID),
		})
	}
	return out, nil
}

// buildFilter translates the unified filter keys into qdrant must-clauses:
// workspace equality and, for time_range=recent, a 7-day created_at window.
func buildFilter(filter domain.SearchFilter, now time.Time) map[string]any {
	must := make([]map[string]any, 0, 2)

	if filter.WorkspaceID != "" {
		must = append(must, map[string]any{
			"key":   "ws_id",
			"match": map[string]any{"value": filter.WorkspaceID},
		})
	}
	if filter.TimeRange == domain.TimeRangeRecent {
		must = append(must, map[string]any{
			"key":   "created_at",
			"range": map[string]any{"gte": now.Add(-recentWindow).Unix()},
		})
	}

	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func searchLimit(params domain.SearchParameters) int {
	if params.Limit > 0 {
		return params.Limit
	}
	return 10
}

func stringifyID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
