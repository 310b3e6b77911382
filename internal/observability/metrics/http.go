package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchesTotal     *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchResults     *prometheus.HistogramVec
	fallbackTotal     *prometheus.CounterVec
	dispatchTotal     *prometheus.CounterVec
	dispatchResults   *prometheus.HistogramVec
	rewrittenTotal    *prometheus.CounterVec
	emptyResultsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "retriever",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Subsystem: "search",
			Name:      "searches_total",
			Help:      "Total completed searches by planned strategy and status.",
		},
		[]string{"service", "strategy", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "End-to-end search duration in seconds by planned strategy.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of results returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
		[]string{"service", "strategy"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Subsystem: "search",
			Name:      "fallback_total",
			Help:      "Total searches that activated their fallback strategy.",
		},
		[]string{"service", "strategy"},
	)
	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Subsystem: "dispatch",
			Name:      "calls_total",
			Help:      "Total backend dispatches by data source and status.",
		},
		[]string{"service", "source", "status"},
	)
	dispatchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever",
			Subsystem: "dispatch",
			Name:      "results",
			Help:      "Distribution of raw results per backend dispatch.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
		[]string{"service", "source"},
	)
	rewrittenTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Subsystem: "search",
			Name:      "rewritten_queries_total",
			Help:      "Total searches whose query was expanded before dispatch.",
		},
		[]string{"service"},
	)
	emptyResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Subsystem: "search",
			Name:      "empty_results_total",
			Help:      "Total searches that returned no results after post-processing.",
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchesTotal,
		searchDuration,
		searchResults,
		fallbackTotal,
		dispatchTotal,
		dispatchResults,
		rewrittenTotal,
		emptyResultsTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		searchesTotal:     searchesTotal,
		searchDuration:    searchDuration,
		searchResults:     searchResults,
		fallbackTotal:     fallbackTotal,
		dispatchTotal:     dispatchTotal,
		dispatchResults:   dispatchResults,
		rewrittenTotal:    rewrittenTotal,
		emptyResultsTotal: emptyResultsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/events/"):
		return "/v1/events/{event_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSearch(service, strategy, status string, resultCount int, duration time.Duration) {
	if strategy == "" {
		strategy = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.searchesTotal.WithLabelValues(service, strategy, status).Inc()
	m.searchDuration.WithLabelValues(service, strategy).Observe(duration.Seconds())
	m.searchResults.WithLabelValues(service, strategy).Observe(float64(resultCount))
	if resultCount == 0 {
		m.emptyResultsTotal.WithLabelValues(service, strategy).Inc()
	}
}

func (m *HTTPServerMetrics) RecordFallback(service, strategy string) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.fallbackTotal.WithLabelValues(service, strategy).Inc()
}

func (m *HTTPServerMetrics) RecordDispatch(service, source, status string, resultCount int) {
	if source == "" {
		source = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.dispatchTotal.WithLabelValues(service, source, status).Inc()
	m.dispatchResults.WithLabelValues(service, source).Observe(float64(resultCount))
}

func (m *HTTPServerMetrics) RecordQueryRewrite(service string) {
	m.rewrittenTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
