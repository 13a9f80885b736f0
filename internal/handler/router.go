package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/metrics"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	AccountHandler *AccountHandler
	StoreHandler   *StoreHandler

	// AuthMiddleware resolves the session of every page request.
	AuthMiddleware func(http.Handler) http.Handler

	// Health is pinged by /health. Optional.
	Health HealthChecker

	// MediaDir serves uploaded avatars under MediaPrefix when set.
	MediaDir    string
	MediaPrefix string

	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Router handles HTTP routing for the store pages.
type Router struct {
	config RouterConfig
	logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	if config.MediaPrefix == "" {
		config.MediaPrefix = "/media/"
	}
	return &Router{
		config: config,
		logger: config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(rt.logger))
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(rt.config.Metrics))

	// Health check (no session)
	r.Get("/health", rt.handleHealth)

	if rt.config.MediaDir != "" {
		prefix := rt.config.MediaPrefix
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(rt.config.MediaDir)))
		r.Handle(prefix+"*", fs)
	}

	r.Group(func(r chi.Router) {
		if rt.config.AuthMiddleware != nil {
			r.Use(rt.config.AuthMiddleware)
		}
		r.Use(flashMiddleware)

		if rt.config.StoreHandler != nil {
			rt.config.StoreHandler.RegisterRoutes(r)
		}
		if rt.config.AccountHandler != nil {
			rt.config.AccountHandler.RegisterRoutes(r)
		}
	})

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, map[string]string{"status": "healthy"}

	if rt.config.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.config.Health.Health(ctx); err != nil {
			rt.logger.Error().Err(err).Msg("Health check failed")
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
