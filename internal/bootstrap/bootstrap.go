package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	httpadapter "github.com/kirillkom/legal-workflow/internal/adapters/http"
	"github.com/kirillkom/legal-workflow/internal/config"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
	"github.com/kirillkom/legal-workflow/internal/core/usecase"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/calendar"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/queue/nats"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/legal-workflow/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	DB      *sql.DB
	Queue   *nats.Queue
	Metrics *metrics.HTTPServerMetrics

	Suggestions  *usecase.SuggestionUseCase
	Decisions    *usecase.DecisionUseCase
	Conciliation *usecase.ConciliationUseCase
	Tasks        *usecase.TaskUseCase
	Catalog      *usecase.CatalogUseCase
	Seeder       ports.TaskSeeder
	Exporter     *xlsx.Exporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	location, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone: %w", err)
	}
	businessCalendar, err := calendar.New(location, cfg.CalendarHolidays)
	if err != nil {
		return nil, fmt.Errorf("init business calendar: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.Retry.MaxAttempts = cfg.ResilienceRetryMaxAttempts
	resilienceCfg.Retry.InitialBackoff = cfg.ResilienceRetryInitialBackoff
	resilienceCfg.Retry.MaxBackoff = cfg.ResilienceRetryMaxBackoff
	resilienceCfg.Breaker.Enabled = cfg.ResilienceBreakerEnabled
	resilienceCfg.Breaker.OpenTimeout = cfg.ResilienceBreakerOpenTimeout
	executor := resilience.NewExecutor(resilienceCfg,
		resilience.WithObserver(httpMetrics),
		resilience.WithLogger(logger),
	)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectDecisions, nats.Options{
		Name:               "legal-workflow-" + service,
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})

	rules := postgres.NewRuleRepository(db)
	items := postgres.NewItemRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	taskRepo := postgres.NewTaskRepository(db)

	deadlines := usecase.NewDeadlineCalculator(businessCalendar, location, logger)
	matcher := usecase.NewEventMatcher(rules, logger)
	recommender := usecase.NewRecommender(rules, deadlines)

	suggestions := usecase.NewSuggestionUseCase(items, rules, matcher, recommender, httpMetrics, logger)
	decisions := usecase.NewDecisionUseCase(suggestions, items, queue, httpMetrics, logger)
	conciliation := usecase.NewConciliationUseCase(items, items, embedder, httpMetrics, logger)
	tasks := usecase.NewTaskUseCase(
		taskRepo,
		storage,
		pdf.NewInspector(int64(cfg.ProtocolMaxBytes)),
		httpMetrics,
		logger,
		func() time.Time { return time.Now().In(location) },
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Queue:   queue,
		Metrics: httpMetrics,

		Suggestions:  suggestions,
		Decisions:    decisions,
		Conciliation: conciliation,
		Tasks:        tasks,
		Catalog:      usecase.NewCatalogUseCase(catalogRepo),
		Seeder:       usecase.NewTaskSeedUseCase(taskRepo, location, logger),
		Exporter:     xlsx.NewExporter(),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// HTTPServices exposes the use cases as the ports served by the HTTP adapter.
func (a *App) HTTPServices() httpadapter.Services {
	return httpadapter.Services{
		Suggestions:  a.Suggestions,
		Decisions:    a.Decisions,
		Conciliation: a.Conciliation,
		Tasks:        a.Tasks,
		Catalog:      a.Catalog,
		Exporter:     a.Exporter,
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
