package ports

import (
	"context"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// VectorSearcher runs semantic (and hybrid) search against the vector store.
type VectorSearcher interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter, params domain.SearchParameters) ([]domain.SearchResult, error)
	SearchHybrid(ctx context.Context, query string, filter domain.SearchFilter, params domain.SearchParameters) ([]domain.SearchResult, error)
}

// KeywordSearcher runs exact-term search against the keyword index.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter, params domain.SearchParameters) ([]domain.SearchResult, error)
}

// WebSearcher runs an external web search. Implementations fabricate
// rank-based scores since the backend has no native relevance score.
type WebSearcher interface {
	Search(ctx context.Context, query string, params domain.SearchParameters) ([]domain.SearchResult, error)
}

// Embedder builds the query vector for semantic search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EventPublisher forwards lifecycle events to the message bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// EventSubscriber consumes lifecycle events from the message bus.
type EventSubscriber interface {
	SubscribeEvents(ctx context.Context, handler func(context.Context, domain.Event) error) error
}

// EventBus is the queue connection shared by the API and the worker.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close()
}

// AuditStore persists lifecycle events for the retrieval audit trail.
type AuditStore interface {
	RecordEvent(ctx context.Context, event domain.Event) error
	GetEventByID(ctx context.Context, id string) (*domain.Event, error)
	ListRecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
}
