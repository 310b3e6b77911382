package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/retrieval-agent/internal/bootstrap"
	"github.com/kirillkom/retrieval-agent/internal/config"
	"github.com/kirillkom/retrieval-agent/internal/core/domain"
	"github.com/kirillkom/retrieval-agent/internal/observability/logging"
	"github.com/kirillkom/retrieval-agent/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("retrieval-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	wm := metrics.NewWorkerMetrics("retrieval-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux(wm),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeEvents(ctx, func(handlerCtx context.Context, event domain.Event) error {
		wm.ObserveQueueLag("retrieval-worker", time.Since(event.Timestamp))
		wm.StartEvent()
		start := time.Now()

		persistCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Second)
		defer cancel()
		persistErr := app.Audit.RecordEvent(persistCtx, event)
		wm.FinishEvent("retrieval-worker", event.Event, time.Since(start), persistErr)
		return persistErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsMux(wm *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", wm.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
