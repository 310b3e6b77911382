package domain

import "time"

// SearchStrategy is the closed set of retrieval modes the engine can pick.
type SearchStrategy string

const (
	StrategyVector  SearchStrategy = "vector"
	StrategyKeyword SearchStrategy = "keyword"
	StrategyHybrid  SearchStrategy = "hybrid"
	StrategyWeb     SearchStrategy = "web"
	// StrategyCRM is reserved; no dispatcher is wired for it.
	StrategyCRM SearchStrategy = "crm"
)

// Data source tags, one per strategy.
const (
	SourceVectorStore  = "vector-store"
	SourceKeywordIndex = "keyword-index"
	SourceWebSearch    = "web-search"
	SourceCRMAPI       = "crm-api"
)

// SearchFilter carries the unified filter keys each dispatcher translates
// into its backend's native filter syntax.
type SearchFilter struct {
	WorkspaceID string `json:"ws_id,omitempty"`
	DocType     string `json:"doc_type,omitempty"`
	TimeRange   string `json:"time_range,omitempty"`
}

// TimeRangeRecent selects the last 7 days in backends that support it.
const TimeRangeRecent = "recent"

// SearchParameters is the fixed-shape options record built per plan.
type SearchParameters struct {
	Limit          int      `json:"limit"`
	ScoreThreshold float64  `json:"score_threshold"`
	SearchFields   []string `json:"search_fields,omitempty"`
	VectorWeight   float64  `json:"vector_weight,omitempty"`
	KeywordWeight  float64  `json:"keyword_weight,omitempty"`
}

// FallbackPlan names the secondary strategy tried when the primary dispatch
// comes back empty.
type FallbackPlan struct {
	StrategyType SearchStrategy `json:"strategy_type"`
	DataSource   string         `json:"data_source"`
}

// RetrievalPlan is the value record produced by strategy selection and
// consumed by dispatch. It is never mutated after construction.
type RetrievalPlan struct {
	StrategyType  SearchStrategy   `json:"strategy_type"`
	DataSource    string           `json:"data_source"`
	Query         string           `json:"query"`
	OriginalQuery string           `json:"original_query"`
	Filters       SearchFilter     `json:"filters"`
	Parameters    SearchParameters `json:"parameters"`
	Fallback      *FallbackPlan    `json:"fallback_strategy,omitempty"`
}

// SearchResult is the common shape every dispatcher normalizes into.
// Score is an ordering key only: vector and keyword backends return native
// relevance scores while the web dispatcher fabricates rank-based ones, so
// scores are not comparable across sources.
type SearchResult struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
	Source   string         `json:"source"`
	ChunkID  string         `json:"chunk_id,omitempty"`
}

// SearchContext is the per-call context callers pass into Search.
// RequestID ties the call's lifecycle events back to the transport request
// that carried it; the HTTP adapter fills it from the X-Request-Id header.
type SearchContext struct {
	DocType        string       `json:"doc_type,omitempty"`
	CallerAgent    string       `json:"caller_agent,omitempty"`
	RequestID      string       `json:"request_id,omitempty"`
	Limit          int          `json:"limit,omitempty"`
	ScoreThreshold *float64     `json:"score_threshold,omitempty"`
	Filters        SearchFilter `json:"filters,omitempty"`
}

// SearchMetadata describes one completed (or failed) search call.
type SearchMetadata struct {
	TotalResults    int            `json:"total_results"`
	Query           string         `json:"query"`
	RewrittenQuery  string         `json:"rewritten_query,omitempty"`
	StrategyUsed    SearchStrategy `json:"strategy_used,omitempty"`
	DataSource      string         `json:"data_source,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
	Timestamp       time.Time      `json:"timestamp"`
	ErrorMessage    string         `json:"error_message,omitempty"`
}

// SearchError is the structured failure payload; Code is stable, Message free-form.
type SearchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrCodeRetrievalFailed is the only error code the orchestrator surfaces.
const ErrCodeRetrievalFailed = "RETRIEVAL_FAILED"

// SearchResponse is the envelope Search always returns; it never carries a Go error.
type SearchResponse struct {
	Success  bool           `json:"success"`
	Results  []SearchResult `json:"results"`
	Metadata SearchMetadata `json:"metadata"`
	Error    *SearchError   `json:"error"`
}
