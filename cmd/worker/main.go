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

	"github.com/kirillkom/legal-workflow/internal/bootstrap"
	"github.com/kirillkom/legal-workflow/internal/config"
	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/observability/logging"
	"github.com/kirillkom/legal-workflow/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubjectDecisions+".*")
	err = app.Queue.SubscribeDecisionConfirmed(ctx, func(handlerCtx context.Context, event domain.DecisionConfirmed) error {
		seedCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		done := workerMetrics.TrackSeed(event.OccurredAt)
		created, err := app.Seeder.Seed(seedCtx, event)
		done(created, err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
