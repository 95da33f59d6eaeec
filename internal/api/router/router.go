package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/healthsync/healthsync-api/internal/http/handlers"
	httpmiddleware "github.com/healthsync/healthsync-api/internal/http/middleware"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AgentHandler       *handlers.AgentHandler
	HealthHandler      *handlers.HealthHandler
	MetricsHandler     http.Handler
	JWTSecret          string
	CORSAllowedOrigins []string

	// ChatLimiter caps chatbot requests per user; nil disables limiting.
	ChatLimiter *httpmiddleware.RateLimiter
}

// New creates the chi router for the public API.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler.Health)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.AgentHandler != nil {
		r.Group(func(private chi.Router) {
			private.Use(httpmiddleware.UserJWT(cfg.JWTSecret))
			if cfg.ChatLimiter != nil {
				private.Use(httpmiddleware.RateLimit(cfg.ChatLimiter))
			}
			private.Use(middleware.AllowContentType("application/json"))
			private.Post("/chatbot", cfg.AgentHandler.Chat)
		})
	}

	return r
}
