package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/defence-assistant/internal/bootstrap"
	"github.com/kirillkom/defence-assistant/internal/config"
	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/observability/logging"
	"github.com/kirillkom/defence-assistant/internal/observability/metrics"
)

const eventTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.WithBreakerObserver(workerMetrics.ObserveBreakerTransition))
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalysisCompleted(ctx, func(handlerCtx context.Context, event domain.AnalysisCompleted) error {
		if !event.CreatedAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(event.CreatedAt))
		}

		workerMetrics.StartEvent()
		started := time.Now()
		eventCtx, cancel := context.WithTimeout(handlerCtx, eventTimeout)
		defer cancel()

		err := app.Referrals.HandleAnalysisCompleted(eventCtx, event)
		workerMetrics.FinishEvent(time.Since(started), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
