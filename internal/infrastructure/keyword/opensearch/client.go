package opensearch

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
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/resilience"
)

// Client is the keyword-index dispatcher: it translates the unified request
// into an OpenSearch bool query and normalizes the hit list back.
type Client struct {
	baseURL    string
	index      string
	username   string
	password   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, index, username, password string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Search(
	ctx context.Context,
	query string,
	filter domain.SearchFilter,
	params domain.SearchParameters,
) ([]domain.SearchResult, error) {
	fields := params.SearchFields
	if len(fields) == 0 {
		fields = []string{"*"}
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{
						"multi_match": map[string]any{
							"query":  query,
							"fields": fields,
						},
					},
				},
				"filter": buildFilterClauses(filter),
			},
		},
		"size": searchSize(params),
	}

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
		if err := c.executor.Execute(ctx, "opensearch.search", call, resilience.ClassifyHTTPError); err != nil {
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

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opensearch search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &resilience.HTTPStatusError{
			Backend:    "opensearch",
			Operation:  "search",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		source := hit.Source
		if source == nil {
			source = map[string]any{}
		}
		content, _ := source["content"].(string)
		out = append(out, domain.SearchResult{
			Content:  content,
			Score:    hit.Score,
			Metadata: source,
			Source:   domain.SourceKeywordIndex,
			ChunkID:  hit.ID,
		})
	}
	return out, nil
}

// buildFilterClauses maps the unified filter keys onto term filters.
func buildFilterClauses(filter domain.SearchFilter) []map[string]any {
	clauses := make([]map[string]any, 0, 2)
	if filter.WorkspaceID != "" {
		clauses = append(clauses, map[string]any{
			"term": map[string]any{"ws_id": filter.WorkspaceID},
		})
	}
	if filter.DocType != "" {
		clauses = append(clauses, map[string]any{
			"term": map[string]any{"doc_type": filter.DocType},
		})
	}
	return clauses
}

func searchSize(params domain.SearchParameters) int {
	if params.Limit > 0 {
		return params.Limit
	}
	return 10
}
