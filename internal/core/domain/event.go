package domain

import "time"

// Lifecycle event tags emitted during one search call.
const (
	EventRetrievalStarted           = "RetrievalStarted"
	EventRetrievalStrategyCompleted = "RetrievalStrategyCompleted"
	EventToolCallCompleted          = "ToolCallCompleted"
	EventFallbackStrategyActivated  = "FallbackStrategyActivated"
	EventRetrievalCompleted         = "RetrievalCompleted"
	EventRetrievalError             = "RetrievalError"
)

// Event is a fire-and-forget lifecycle notification. Delivery order is
// handler registration order; handlers are not retried.
type Event struct {
	ID        string         `json:"id,omitempty"`
	Event     string         `json:"event"`
	AgentName string         `json:"agent_name"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}
