package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/retrieval-agent/internal/config"
	"github.com/kirillkom/retrieval-agent/internal/core/domain"
	"github.com/kirillkom/retrieval-agent/internal/core/ports"
	"github.com/kirillkom/retrieval-agent/internal/core/usecase"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/keyword/opensearch"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/queue/nats"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/resilience"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/web"
	"github.com/kirillkom/retrieval-agent/internal/infrastructure/web/duckduckgo"
	"github.com/kirillkom/retrieval-agent/internal/observability/metrics"
)

type App struct {
	Config config.Config

	SearchUC ports.SearchService
	Audit    ports.AuditStore
	Queue    ports.EventBus
	Metrics  *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	rules, err := config.LoadSelectorRules(cfg.SelectorRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load selector rules: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	audit := postgres.NewAuditRepository(db)
	if err := audit.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init event queue: %w", err)
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

	srv := metrics.NewHTTPServerMetrics(cfg.AgentName)

	searchUC := usecase.NewSearchUseCase(
		cfg.AgentName,
		usecase.NewStrategyPlanner(rules),
		vector,
		keyword,
		webSearcher,
	)
	searchUC.AddEventHandler(metrics.NewEventObserver(srv, cfg.AgentName))
	searchUC.AddEventHandler(func(ctx context.Context, event domain.Event) error {
		if err := queue.PublishEvent(ctx, event); err != nil {
			slog.Warn("event_publish_failed", "event", event.Event, "error", err)
		}
		return nil
	})

	return &App{
		Config:   cfg,
		SearchUC: searchUC,
		Audit:    audit,
		Queue:    queue,
		Metrics:  srv,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
