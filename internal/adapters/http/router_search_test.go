package httpadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
	"github.com/kirillkom/retrieval-agent/internal/core/ports"
)

type searchServiceFake struct {
	lastQuery     string
	lastContext   domain.SearchContext
	lastSessionID string
	lastUserID    string
	response      domain.SearchResponse
}

func (f *searchServiceFake) Search(_ context.Context, query string, sctx domain.SearchContext, sessionID, userID string) domain.SearchResponse {
	f.lastQuery = query
	f.lastContext = sctx
	f.lastSessionID = sessionID
	f.lastUserID = userID
	return f.response
}

type auditStoreFake struct {
	events    []domain.Event
	lastLimit int
	err       error
}

func (f *auditStoreFake) RecordEvent(_ context.Context, event domain.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func (f *auditStoreFake) GetEventByID(_ context.Context, id string) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.events {
		if f.events[i].ID == id {
			return &f.events[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get event", sql.ErrNoRows)
}

func (f *auditStoreFake) ListRecentEvents(_ context.Context, limit int) ([]domain.Event, error) {
	f.lastLimit = limit
	return f.events, f.err
}

func newTestRouter(search *searchServiceFake, audit *auditStoreFake) http.Handler {
	var store ports.AuditStore
	if audit != nil {
		store = audit
	}
	return NewRouter(search, store, nil, RouterConfig{}).Handler()
}

func TestRunSearchForwardsRequestAndReturnsEnvelope(t *testing.T) {
	search := &searchServiceFake{
		response: domain.SearchResponse{
			Success: true,
			Results: []domain.SearchResult{
				{Content: "golang concurrency patterns", Score: 0.9, Source: domain.SourceVectorStore},
			},
			Metadata: domain.SearchMetadata{
				TotalResults: 1,
				Query:        "golang concurrency",
				StrategyUsed: domain.StrategyHybrid,
			},
		},
	}
	handler := newTestRouter(search, nil)

	body := `{
		"query": "golang concurrency",
		"context": {"doc_type": "pdf", "limit": 3, "filters": {"ws_id": "ws-1"}},
		"session_id": "s-1",
		"user_id": "u-1"
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if search.lastQuery != "golang concurrency" {
		t.Fatalf("query = %q", search.lastQuery)
	}
	if search.lastContext.DocType != "pdf" || search.lastContext.Limit != 3 {
		t.Fatalf("context = %+v", search.lastContext)
	}
	if search.lastContext.Filters.WorkspaceID != "ws-1" {
		t.Fatalf("workspace filter = %q", search.lastContext.Filters.WorkspaceID)
	}
	if search.lastSessionID != "s-1" || search.lastUserID != "u-1" {
		t.Fatalf("session/user = %q/%q", search.lastSessionID, search.lastUserID)
	}

	var resp domain.SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || len(resp.Results) != 1 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestRunSearchPropagatesRequestIDIntoContext(t *testing.T) {
	search := &searchServiceFake{}
	handler := newTestRouter(search, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"golang concurrency"}`))
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if search.lastContext.RequestID != "req-42" {
		t.Fatalf("request id = %q, want req-42", search.lastContext.RequestID)
	}
	if res.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("response header = %q, want req-42", res.Header().Get(requestIDHeader))
	}

	// Without a caller-supplied header the minted id still reaches the engine.
	req2 := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"golang concurrency"}`))
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if search.lastContext.RequestID == "" {
		t.Fatalf("expected a minted request id in the search context")
	}
	if search.lastContext.RequestID != res2.Header().Get(requestIDHeader) {
		t.Fatalf("context id %q != response header %q", search.lastContext.RequestID, res2.Header().Get(requestIDHeader))
	}

	// A request id set in the body wins over the transport header.
	body := `{"query":"golang concurrency","context":{"request_id":"caller-7"}}`
	req3 := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	req3.Header.Set(requestIDHeader, "req-42")
	res3 := httptest.NewRecorder()
	handler.ServeHTTP(res3, req3)
	if search.lastContext.RequestID != "caller-7" {
		t.Fatalf("request id = %q, want caller-7", search.lastContext.RequestID)
	}
}

func TestRunSearchRejectsEmptyQuery(t *testing.T) {
	handler := newTestRouter(&searchServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"   "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestRunSearchRejectsInvalidJSON(t *testing.T) {
	handler := newTestRouter(&searchServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query": `))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestRunSearchRejectsGet(t *testing.T) {
	handler := newTestRouter(&searchServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", res.Code)
	}
}

func TestRunSearchReturnsDegradedEnvelopeWith200(t *testing.T) {
	search := &searchServiceFake{
		response: domain.SearchResponse{
			Success: false,
			Results: []domain.SearchResult{},
			Error: &domain.SearchError{
				Code:    domain.ErrCodeRetrievalFailed,
				Message: "backend panicked",
			},
		},
	}
	handler := newTestRouter(search, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"anything"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	var resp domain.SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected degraded envelope")
	}
	if resp.Error == nil || resp.Error.Code != domain.ErrCodeRetrievalFailed {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestListEventsUsesLimitAndDefault(t *testing.T) {
	audit := &auditStoreFake{
		events: []domain.Event{
			{ID: "ev-1", Event: domain.EventRetrievalCompleted, Timestamp: time.Now().UTC()},
		},
	}
	handler := newTestRouter(&searchServiceFake{}, audit)

	req := httptest.NewRequest(http.MethodGet, "/v1/events?limit=7", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if audit.lastLimit != 7 {
		t.Fatalf("limit = %d, want 7", audit.lastLimit)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if audit.lastLimit != 50 {
		t.Fatalf("default limit = %d, want 50", audit.lastLimit)
	}
}

func TestListEventsMapsTemporaryFailureTo503(t *testing.T) {
	audit := &auditStoreFake{
		err: domain.WrapError(domain.ErrTemporary, "list events", errors.New("connection refused")),
	}
	handler := newTestRouter(&searchServiceFake{}, audit)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", res.Code)
	}
}

func TestGetEventByIDReturnsEvent(t *testing.T) {
	audit := &auditStoreFake{
		events: []domain.Event{
			{ID: "ev-1", Event: domain.EventRetrievalCompleted, Timestamp: time.Now().UTC()},
		},
	}
	handler := newTestRouter(&searchServiceFake{}, audit)

	req := httptest.NewRequest(http.MethodGet, "/v1/events/ev-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	var event domain.Event
	if err := json.NewDecoder(res.Body).Decode(&event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.ID != "ev-1" {
		t.Fatalf("event.ID = %q, want ev-1", event.ID)
	}
}

func TestGetEventByIDMapsNotFoundTo404(t *testing.T) {
	handler := newTestRouter(&searchServiceFake{}, &auditStoreFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/events/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestListEventsRejectsBadLimit(t *testing.T) {
	handler := newTestRouter(&searchServiceFake{}, &auditStoreFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/events?limit=zero", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestListEventsWithoutStoreReturns501(t *testing.T) {
	handler := newTestRouter(&searchServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", res.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&searchServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}
