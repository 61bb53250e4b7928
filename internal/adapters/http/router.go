package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/legal-workflow/internal/config"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
	"github.com/kirillkom/legal-workflow/internal/observability/metrics"
)

// Services are the inbound ports served over HTTP.
type Services struct {
	Suggestions  ports.SuggestionService
	Decisions    ports.DecisionService
	Conciliation ports.ConciliationService
	Tasks        ports.TaskService
	Catalog      ports.CatalogService
	Exporter     ports.TaskExporter
}

type Options struct {
	Auth             AuthConfig
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
	RequestTimeout   time.Duration
	MaxUploadBytes   int64

	Contract *openapi3.T
	Metrics  *metrics.HTTPServerMetrics
	Logger   *slog.Logger
}

// OptionsFromConfig maps the API settings of cfg onto router options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Auth: AuthConfig{
			JWTSecret:     cfg.AuthJWTSecret,
			AllowHeaders:  cfg.AuthAllowHeader,
			DefaultTenant: cfg.AuthDefaultTenant,
		},
		RateLimitRPS:     cfg.APIRateLimitRPS,
		RateLimitBurst:   cfg.APIRateLimitBurst,
		MaxInFlight:      cfg.APIMaxInFlight,
		BackpressureWait: time.Duration(cfg.APIBackpressureMS) * time.Millisecond,
		RequestTimeout:   time.Duration(cfg.APIRequestTimeoutS) * time.Second,
		MaxUploadBytes:   int64(cfg.ProtocolMaxBytes),
	}
}

type Router struct {
	services Services
	opts     Options
	logger   *slog.Logger
}

func NewRouter(services Services, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Router{
		services: services,
		opts:     opts,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	r.Use(middleware.Recoverer)
	if rt.opts.Metrics != nil {
		r.Use(rt.opts.Metrics.Middleware)
	}
	r.Use(func(next http.Handler) http.Handler {
		return backpressureMiddleware(next, rt.opts.MaxInFlight, rt.opts.BackpressureWait, rt.logger)
	})
	r.Use(func(next http.Handler) http.Handler {
		return rateLimitMiddleware(next, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	})

	r.Get("/healthz", rt.healthz)
	if rt.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}
	r.Get("/v1/openapi.json", rt.openAPI)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(rt.opts.Auth, rt.logger))
		if rt.opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(rt.opts.RequestTimeout))
		}

		r.Route("/v1/eventos", func(r chi.Router) {
			r.Get("/sugestao/{idItem}", rt.getSuggestion)
			r.Post("/confirmar", rt.confirmDecision)
		})

		r.Route("/v1/conciliacao", func(r chi.Router) {
			r.Post("/cadastrar", rt.registerItem)
			r.Post("/cancelar", rt.discardItem)
			r.Get("/uploads/{uploadId}/itens", rt.listPendingByUpload)
			r.Get("/itens/{idItem}/publicacao", rt.linkedPublication)
		})

		r.Route("/v1/configuracao", func(r chi.Router) {
			r.Get("/eventos", rt.listEvents)
			r.Post("/eventos", rt.createEvent)
			r.Put("/eventos/{id}", rt.updateEvent)
			r.Delete("/eventos/{id}", rt.deleteEvent)
			r.Get("/eventos/{id}/providencias", rt.listEventActions)
			r.Post("/eventos/{id}/providencias", rt.createEventAction)

			r.Get("/mapeamentos", rt.listMappings)
			r.Post("/mapeamentos", rt.createMapping)
			r.Put("/mapeamentos/{id}", rt.updateMapping)
			r.Delete("/mapeamentos/{id}", rt.deleteMapping)

			r.Put("/regras/{id}", rt.updateEventAction)
			r.Delete("/regras/{id}", rt.deleteEventAction)

			r.Get("/providencias", rt.listActions)
			r.Post("/providencias", rt.createAction)
			r.Put("/providencias/{id}", rt.updateAction)
			r.Delete("/providencias/{id}", rt.deleteAction)
		})

		r.Route("/v1/tarefas", func(r chi.Router) {
			r.Get("/", rt.listTasks)
			r.Get("/export", rt.exportTasks)
			r.Get("/{id}", rt.getTask)
			r.Patch("/{id}/atribuir", rt.assignTask)
			r.Patch("/{id}/status", rt.updateTaskStatus)
			r.Get("/{id}/checklist", rt.listChecklist)
			r.Post("/{id}/checklist", rt.createChecklistItem)
			r.Patch("/{id}/checklist/{itemId}", rt.updateChecklistItem)
			r.Delete("/{id}/checklist/{itemId}", rt.deleteChecklistItem)
			r.Post("/{id}/protocolar", rt.protocolTask)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Recurso não encontrado."})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Método não permitido."})
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	if rt.opts.Contract == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Contrato da API indisponível."})
		return
	}
	writeJSON(w, http.StatusOK, rt.opts.Contract)
}
