package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const resultPage = `
<html><body>
<div class="results">
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="https://example.com/one">First Result</a></h2>
    <a class="result__snippet">Snippet for the <b>first</b> result.</a>
  </div>
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="https://example.com/two">Second Result</a></h2>
    <div class="result__snippet">Second snippet.</div>
  </div>
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="https://example.com/three">Third Without Snippet</a></h2>
  </div>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	results, err := parseResults(strings.NewReader(resultPage), 10)
	if err != nil {
		t.Fatalf("parseResults() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	first := results[0].(map[string]any)
	if first["title"] != "First Result" {
		t.Fatalf("unexpected title: %v", first["title"])
	}
	if first["link"] != "https://example.com/one" {
		t.Fatalf("unexpected link: %v", first["link"])
	}
	if first["snippet"] != "Snippet for the first result." {
		t.Fatalf("unexpected snippet: %v", first["snippet"])
	}

	third := results[2].(map[string]any)
	if _, ok := third["snippet"]; ok {
		t.Fatalf("third result must have no snippet")
	}
}

func TestParseResultsHonorsMax(t *testing.T) {
	results, err := parseResults(strings.NewReader(resultPage), 2)
	if err != nil {
		t.Fatalf("parseResults() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestSearchAgainstServer(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	results, err := client.Search(context.Background(), "最新 AI news", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "最新 AI news" {
		t.Fatalf("query not forwarded, got %q", gotQuery)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestSearchErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	if _, err := client.Search(context.Background(), "q", 5); err == nil {
		t.Fatalf("expected error")
	}
}
