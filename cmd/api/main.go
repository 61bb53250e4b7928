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

	httpadapter "github.com/kirillkom/legal-workflow/internal/adapters/http"
	"github.com/kirillkom/legal-workflow/internal/bootstrap"
	"github.com/kirillkom/legal-workflow/internal/config"
	"github.com/kirillkom/legal-workflow/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contract, err := httpadapter.LoadAPIContract(ctx)
	if err != nil {
		logger.Error("api_contract_invalid", "error", err)
		os.Exit(1)
	}

	app, err := bootstrap.New(ctx, cfg, "api", logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	opts := httpadapter.OptionsFromConfig(cfg)
	opts.Contract = contract
	opts.Metrics = app.Metrics
	opts.Logger = logger
	if cfg.AuthJWTSecret == "" && !cfg.AuthAllowHeader {
		logger.Warn("auth_unconfigured", "detail", "set AUTH_JWT_SECRET or AUTH_ALLOW_HEADER_TENANT; every /v1 request will be rejected")
	}

	router := httpadapter.NewRouter(app.HTTPServices(), opts).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
