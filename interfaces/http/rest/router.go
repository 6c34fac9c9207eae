package rest

import (
	"net/http"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/interfaces/http/rest/handlers"
	"github.com/ariellewolter/research-notebook-ver4-sub004/interfaces/http/rest/middleware"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/auth"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig selects the optional parts of the HTTP surface
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
	EnableMetrics  bool
	Debug          bool

	// Validator enables bearer token auth on /api routes when set
	Validator *auth.JWTValidator
	Metrics   *observability.Collector
}

// NewRouter creates and configures the HTTP router
func NewRouter(service *services.LinkService, cfg RouterConfig, logger *zap.Logger) http.Handler {
	errorHandler := apperrors.NewErrorHandler(logger, cfg.Debug)
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(logger))
	router.Use(errorHandler.Middleware)
	if cfg.EnableMetrics && cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	health := handlers.NewHealthHandler(service, logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	if cfg.EnableMetrics && cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}

	links := handlers.NewLinkHandler(service, errorHandler, logger)
	entities := handlers.NewEntityHandler(service, errorHandler, logger)
	graph := handlers.NewGraphHandler(service, errorHandler, logger)

	router.Route("/api/v1", func(r chi.Router) {
		if cfg.Validator != nil {
			r.Use(middleware.Authenticate(cfg.Validator, errorHandler))
		}

		r.Route("/links", func(r chi.Router) {
			r.Post("/", links.CreateLink)
			r.Get("/", links.ListLinks)
			r.Post("/bidirectional", links.CreateBidirectionalLink)
			r.Get("/search", links.SearchLinks)
			r.Get("/{linkID}", links.GetLink)
			r.Delete("/{linkID}", links.DeleteLink)
		})

		r.Route("/entities/{entityType}/{entityID}", func(r chi.Router) {
			r.Get("/backlinks", entities.GetBacklinks)
			r.Get("/outgoing", entities.GetOutgoing)
			r.Get("/connections", entities.GetConnections)
			r.Delete("/links", entities.DeleteLinks)
		})

		r.Get("/graph", graph.GetGraph)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}
