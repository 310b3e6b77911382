package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
	"github.com/kirillkom/retrieval-agent/internal/core/ports"
)

// EventHandler receives lifecycle events. A handler error (or panic) is
// logged and never propagated to other handlers or to the search caller.
type EventHandler func(ctx context.Context, event domain.Event) error

type registeredHandler struct {
	id int
	fn EventHandler
}

// SearchUseCase sequences strategy selection, dispatch, fallback and
// post-processing for one search call. All per-call state is freshly
// allocated; the only process-lifetime state is the handler list, which is
// not safe to mutate concurrently with an in-flight call.
type SearchUseCase struct {
	agentName string
	planner   *StrategyPlanner

	vector  ports.VectorSearcher
	keyword ports.KeywordSearcher
	web     ports.WebSearcher

	handlers []registeredHandler
	nextID   int
}

// NewSearchUseCase wires the dispatchers. A nil dispatcher means the backend
// was never configured and dispatches to it return empty results.
func NewSearchUseCase(
	agentName string,
	planner *StrategyPlanner,
	vector ports.VectorSearcher,
	keyword ports.KeywordSearcher,
	web ports.WebSearcher,
) *SearchUseCase {
	if agentName == "" {
		agentName = "retrieval-agent"
	}
	if planner == nil {
		planner = NewStrategyPlanner(domain.DefaultSelectorRules())
	}
	return &SearchUseCase{
		agentName: agentName,
		planner:   planner,
		vector:    vector,
		keyword:   keyword,
		web:       web,
	}
}

// AddEventHandler registers a lifecycle listener and returns its id.
// Handlers are notified sequentially in registration order.
func (uc *SearchUseCase) AddEventHandler(handler EventHandler) int {
	uc.nextID++
	uc.handlers = append(uc.handlers, registeredHandler{id: uc.nextID, fn: handler})
	return uc.nextID
}

// RemoveEventHandler drops the handler registered under id, if still present.
func (uc *SearchUseCase) RemoveEventHandler(id int) {
	for i, reg := range uc.handlers {
		if reg.id == id {
			uc.handlers = append(uc.handlers[:i], uc.handlers[i+1:]...)
			return
		}
	}
}

// Search runs one retrieval call to completion. It never returns a Go error:
// orchestration failures degrade to a structured RETRIEVAL_FAILED response.
func (uc *SearchUseCase) Search(
	ctx context.Context,
	query string,
	sctx domain.SearchContext,
	sessionID, userID string,
) (resp domain.SearchResponse) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("retrieval panic: %v", r)
			slog.Error("retrieval_failed", "query", query, "error", err)
			uc.emit(ctx, domain.EventRetrievalError, map[string]any{
				"error": err.Error(),
				"query": query,
			})
			resp = uc.failureResponse(query, start, err)
		}
	}()

	uc.emit(ctx, domain.EventRetrievalStarted, map[string]any{
		"query":        query,
		"session_id":   sessionID,
		"user_id":      userID,
		"caller_agent": sctx.CallerAgent,
		"request_id":   sctx.RequestID,
	})

	plan := uc.planner.Plan(query, sctx)
	uc.emit(ctx, domain.EventRetrievalStrategyCompleted, map[string]any{
		"strategy":        string(plan.StrategyType),
		"data_source":     plan.DataSource,
		"query":           plan.OriginalQuery,
		"rewritten_query": plan.Query,
	})

	results := uc.dispatch(ctx, plan)

	// Fallback only fires when the primary dispatch was observed empty, with
	// the same rewritten query, filters and parameters.
	if len(results) == 0 && plan.Fallback != nil {
		slog.Info("fallback_activated",
			"from", string(plan.StrategyType),
			"to", string(plan.Fallback.StrategyType),
		)
		uc.emit(ctx, domain.EventFallbackStrategyActivated, map[string]any{
			"from":     string(plan.StrategyType),
			"strategy": string(plan.Fallback.StrategyType),
			"source":   plan.Fallback.DataSource,
		})

		fallbackPlan := domain.RetrievalPlan{
			StrategyType:  plan.Fallback.StrategyType,
			DataSource:    plan.Fallback.DataSource,
			Query:         plan.Query,
			OriginalQuery: plan.OriginalQuery,
			Filters:       plan.Filters,
			Parameters:    plan.Parameters,
		}
		results = uc.dispatch(ctx, fallbackPlan)
	}

	processed := postProcessResults(results, plan.Parameters)
	duration := time.Since(start)

	resp = domain.SearchResponse{
		Success: true,
		Results: processed,
		Metadata: domain.SearchMetadata{
			TotalResults:    len(processed),
			Query:           query,
			RewrittenQuery:  plan.Query,
			StrategyUsed:    plan.StrategyType,
			DataSource:      plan.DataSource,
			DurationSeconds: duration.Seconds(),
			Timestamp:       time.Now().UTC(),
		},
	}

	uc.emit(ctx, domain.EventRetrievalCompleted, map[string]any{
		"results_count": len(processed),
		"duration":      duration.Seconds(),
		"strategy":      string(plan.StrategyType),
	})
	return resp
}

// dispatch calls one backend and reduces every failure to an empty result
// set. "Not configured" and "returned nothing" are the same observable
// outcome.
func (uc *SearchUseCase) dispatch(ctx context.Context, plan domain.RetrievalPlan) []domain.SearchResult {
	results, err := uc.callBackend(ctx, plan)
	if err != nil {
		if domain.IsKind(err, domain.ErrBackendUnconfigured) {
			slog.Debug("dispatch_skipped", "source", plan.DataSource)
		} else {
			slog.Warn("dispatch_failed", "source", plan.DataSource, "error", err)
		}
		results = nil
	}

	uc.emit(ctx, domain.EventToolCallCompleted, map[string]any{
		"tool":          plan.DataSource,
		"results_count": len(results),
	})
	return results
}

func (uc *SearchUseCase) callBackend(ctx context.Context, plan domain.RetrievalPlan) ([]domain.SearchResult, error) {
	switch plan.DataSource {
	case domain.SourceVectorStore:
		if uc.vector == nil {
			return nil, domain.ErrBackendUnconfigured
		}
		if plan.StrategyType == domain.StrategyHybrid {
			return uc.vector.SearchHybrid(ctx, plan.Query, plan.Filters, plan.Parameters)
		}
		return uc.vector.Search(ctx, plan.Query, plan.Filters, plan.Parameters)
	case domain.SourceKeywordIndex:
		if uc.keyword == nil {
			return nil, domain.ErrBackendUnconfigured
		}
		return uc.keyword.Search(ctx, plan.Query, plan.Filters, plan.Parameters)
	case domain.SourceWebSearch:
		if uc.web == nil {
			return nil, domain.ErrBackendUnconfigured
		}
		return uc.web.Search(ctx, plan.Query, plan.Parameters)
	default:
		// Reserved sources (crm-api) dispatch nowhere.
		return nil, nil
	}
}

func (uc *SearchUseCase) failureResponse(query string, start time.Time, err error) domain.SearchResponse {
	return domain.SearchResponse{
		Success: false,
		Results: []domain.SearchResult{},
		Metadata: domain.SearchMetadata{
			Query:           query,
			DurationSeconds: time.Since(start).Seconds(),
			Timestamp:       time.Now().UTC(),
			ErrorMessage:    err.Error(),
		},
		Error: &domain.SearchError{
			Code:    domain.ErrCodeRetrievalFailed,
			Message: err.Error(),
		},
	}
}

func (uc *SearchUseCase) emit(ctx context.Context, name string, data map[string]any) {
	event := domain.Event{
		ID:        uuid.NewString(),
		Event:     name,
		AgentName: uc.agentName,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	for _, reg := range uc.handlers {
		uc.notify(ctx, reg, event)
	}
}

func (uc *SearchUseCase) notify(ctx context.Context, reg registeredHandler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event_handler_panic", "event", event.Event, "handler_id", reg.id, "error", fmt.Sprint(r))
		}
	}()
	if err := reg.fn(ctx, event); err != nil {
		slog.Error("event_handler_error", "event", event.Event, "handler_id", reg.id, "error", err)
	}
}
