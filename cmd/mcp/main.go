package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/retrieval-agent/internal/config"
	"github.com/kirillkom/retrieval-agent/internal/core/domain"
	"github.com/kirillkom/retrieval-agent/internal/core/ports"
	"github.com/kirillkom/retrieval-agent/internal/core/usecase"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/keyword/opensearch"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/resilience"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/web"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/web/duckduckgo"
	"github.com/kirillkom/retrieval-agent/internal/observability/logging"
)

// Stdio tool server exposing the search engine to MCP clients. It runs the
// same strategy and dispatch stack as the API but without the event queue
// and audit store, which have no place in a per-client subprocess.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("retrieval-mcp", cfg.LogLevel))

	searchUC, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}

	s := server.NewMCPServer("retrieval-agent", "1.0.0")
	s.AddTool(searchTool(), searchHandler(searchUC))

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func buildEngine(cfg config.Config) (*usecase.SearchUseCase, error) {
	rules, err := config.LoadSelectorRules(cfg.SelectorRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load selector rules: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	var vector ports.VectorSearcher
	if cfg.QdrantURL != "" {
		embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
		vector = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder, executor)
	}

	var keyword ports.KeywordSearcher
	if cfg.OpenSearchURL != "" {
		keyword = opensearch.New(cfg.OpenSearchURL, cfg.OpenSearchIndex, cfg.OpenSearchUsername, cfg.OpenSearchPassword, executor)
	}

	var webSearcher ports.WebSearcher
	if cfg.WebSearchEnabled {
		webSearcher = web.NewDispatcher(duckduckgo.New(cfg.WebSearchEndpoint, executor))
	}

	return usecase.NewSearchUseCase(
		cfg.AgentName,
		usecase.NewStrategyPlanner(rules),
		vector,
		keyword,
		webSearcher,
	), nil
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Run a retrieval search. The engine picks a vector, keyword, hybrid or web strategy from the query shape and returns scored results."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query."),
		),
		mcp.WithString("doc_type",
			mcp.Description("Document type hint, e.g. pdf."),
		),
		mcp.WithString("workspace_id",
			mcp.Description("Restrict results to one workspace."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results."),
		),
		mcp.WithNumber("score_threshold",
			mcp.Description("Minimum relevance score to keep a result."),
		),
	)
}

func searchHandler(searchUC *usecase.SearchUseCase) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		sctx := domain.SearchContext{
			DocType:     request.GetString("doc_type", ""),
			CallerAgent: "mcp-client",
			Limit:       request.GetInt("limit", 0),
			Filters: domain.SearchFilter{
				WorkspaceID: request.GetString("workspace_id", ""),
			},
		}
		if threshold := request.GetFloat("score_threshold", 0); threshold > 0 {
			sctx.ScoreThreshold = &threshold
		}

		resp := searchUC.Search(ctx, query, sctx, "", "")
		payload, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
