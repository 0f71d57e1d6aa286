package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docsentry/docsentry/internal/http/handlers"
	httpmiddleware "github.com/docsentry/docsentry/internal/http/middleware"
	"github.com/docsentry/docsentry/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	ChatHandler   *handlers.ChatHandler
	HealthHandler *handlers.HealthHandler
	IngestHandler *handlers.IngestHandler

	MetricsHandler http.Handler

	CORSAllowedOrigins   []string
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", cfg.HealthHandler.Health)
		api.Post("/ingest", cfg.IngestHandler.Ingest)

		api.Group(func(chatRoutes chi.Router) {
			if cfg.RateLimitMaxRequests > 0 {
				chatRoutes.Use(httpmiddleware.RateLimit(cfg.RateLimitWindow, cfg.RateLimitMaxRequests))
			}
			chatRoutes.Post("/chat", cfg.ChatHandler.Chat)
			chatRoutes.Post("/chat/stream", cfg.ChatHandler.ChatStream)
		})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
