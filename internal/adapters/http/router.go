package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
	"github.com/kirillkom/retrieval-agent/internal/core/ports"
	"github.com/kirillkom/retrieval-agent/internal/observability/metrics"
)

type RouterConfig struct {
	ServiceName     string
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	EventsListLimit int
}

type Router struct {
	search ports.SearchService
	audit  ports.AuditStore
	srv    *metrics.HTTPServerMetrics
	cfg    RouterConfig
}

func NewRouter(
	search ports.SearchService,
	audit ports.AuditStore,
	srv *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "retrieval-api"
	}
	if cfg.EventsListLimit <= 0 {
		cfg.EventsListLimit = 50
	}
	return &Router{
		search: search,
		audit:  audit,
		srv:    srv,
		cfg:    cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.runSearch)
	mux.HandleFunc("/v1/events", rt.listEvents)
	mux.HandleFunc("/v1/events/", rt.getEventByID)
	if rt.srv != nil {
		mux.Handle("/metrics", rt.srv.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, defaultBackpressureWait)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.srv != nil {
		handler = rt.srv.Middleware(rt.cfg.ServiceName, handler)
	}
	return withRequestID(withAccessLog(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query     string               `json:"query"`
	Context   domain.SearchContext `json:"context"`
	SessionID string               `json:"session_id"`
	UserID    string               `json:"user_id"`
}

func (rt *Router) runSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	if req.Context.RequestID == "" {
		req.Context.RequestID = requestIDFromContext(r.Context())
	}

	resp := rt.search.Search(r.Context(), req.Query, req.Context, req.SessionID, req.UserID)

	// A degraded search is still a completed HTTP exchange; the failure is
	// in the envelope, not the status line.
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.audit == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "event audit store is not configured"})
		return
	}

	limit := rt.cfg.EventsListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	events, err := rt.audit.ListRecentEvents(r.Context(), limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (rt *Router) getEventByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.audit == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "event audit store is not configured"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/events/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event id is required"})
		return
	}

	event, err := rt.audit.GetEventByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
