package ports

import (
	"context"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// SearchService is the engine's single public operation.
type SearchService interface {
	Search(ctx context.Context, query string, sctx domain.SearchContext, sessionID, userID string) domain.SearchResponse
}
