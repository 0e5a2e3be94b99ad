// Package api provides the REST API server for transformer registry access.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/toolhive-transform-registry/internal/api/common"
	v0 "github.com/stacklok/toolhive-transform-registry/internal/api/v0"
	"github.com/stacklok/toolhive-transform-registry/internal/combiner"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
)

// ServerOption configures the registry API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves handler on /metrics
func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = handler
	}
}

// NewServer creates and configures the HTTP router serving the registry published in holder
func NewServer(holder *registry.Holder, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Mount health check routes directly at root
	r.Mount("/", v0.HealthRouter(holder))

	// Same path and document format as a transform engine, so registries can be chained
	r.Get(combiner.ConfigPath, transformConfigHandler(holder))

	r.Mount("/v0", v0.Router(holder))

	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}

	return r
}

// transformConfigHandler serves the published registry as one transform configuration document
func transformConfigHandler(holder *registry.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		reg := holder.Load()
		if reg == nil {
			common.WriteErrorResponse(w, "No registry has been published yet", http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, reg.Config(), http.StatusOK)
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
