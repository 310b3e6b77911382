package metrics

import (
	"context"
	"time"

	"github.com/kirillkom/retrieval-agent/internal/core/domain"
)

// NewEventObserver returns a lifecycle event handler that mirrors search
// events into the Prometheus registry. It never returns an error; a metric
// it cannot derive from the payload is simply not recorded.
func NewEventObserver(m *HTTPServerMetrics, service string) func(context.Context, domain.Event) error {
	return func(_ context.Context, event domain.Event) error {
		switch event.Event {
		case domain.EventRetrievalStrategyCompleted:
			original, _ := event.Data["query"].(string)
			rewritten, _ := event.Data["rewritten_query"].(string)
			if rewritten != "" && rewritten != original {
				m.RecordQueryRewrite(service)
			}
		case domain.EventToolCallCompleted:
			source, _ := event.Data["tool"].(string)
			m.RecordDispatch(service, source, "success", payloadCount(event.Data, "results_count"))
		case domain.EventFallbackStrategyActivated:
			from, _ := event.Data["from"].(string)
			m.RecordFallback(service, from)
		case domain.EventRetrievalCompleted:
			strategy, _ := event.Data["strategy"].(string)
			duration, _ := event.Data["duration"].(float64)
			m.RecordSearch(service, strategy, "success",
				payloadCount(event.Data, "results_count"),
				time.Duration(duration*float64(time.Second)))
		case domain.EventRetrievalError:
			m.RecordSearch(service, "unknown", "error", 0, 0)
		}
		return nil
	}
}

// payloadCount reads a numeric payload field. Events decoded from JSON carry
// float64 where the emitter used int.
func payloadCount(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
