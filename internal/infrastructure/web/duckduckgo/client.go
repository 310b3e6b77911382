package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/kirillkom/retrieval-agent/internal/infrastructure/resilience"
)

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// Client scrapes the DuckDuckGo HTML endpoint. It implements the raw web
// searcher contract: each result is a mapping with title, link and snippet.
type Client struct {
	endpoint   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(endpoint string, executor *resilience.Executor) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/") + "/",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]any, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	var out []any
	call := func(ctx context.Context) error {
		results, err := c.doSearch(ctx, query, maxResults)
		if err != nil {
			return err
		}
		out = results
		return nil
	}

	if c.executor != nil {
		if err := c.executor.Execute(ctx, "duckduckgo.search", call, resilience.ClassifyHTTPError); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := call(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doSearch(ctx context.Context, query string, maxResults int) ([]any, error) {
	searchURL := c.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", "retrieval-agent/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &resilience.HTTPStatusError{
			Backend:    "duckduckgo",
			Operation:  "search",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	results, err := parseResults(resp.Body, maxResults)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo response: %w", err)
	}
	return results, nil
}

// parseResults walks the result page and collects title/link pairs from
// result anchors and the snippet that follows each one. The markup is not
// a stable API, so the walk is tolerant: missing snippets stay empty and
// malformed blocks are skipped.
func parseResults(r io.Reader, maxResults int) ([]any, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, maxResults)
	var current map[string]any

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults && current == nil {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				if current != nil {
					results = append(results, current)
				}
				if len(results) >= maxResults {
					current = nil
					return
				}
				current = map[string]any{
					"title": strings.TrimSpace(nodeText(n)),
					"link":  attrValue(n, "href"),
				}
			case hasClass(n, "result__snippet"):
				if current != nil {
					current["snippet"] = strings.TrimSpace(nodeText(n))
					results = append(results, current)
					current = nil
				}
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	if current != nil && len(results) < maxResults {
		results = append(results, current)
	}
	return results, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
