// Package httpapi assembles the public HTTP surface: the middleware chain,
// health and metrics endpoints, and the feature handlers.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repute/internal/platform/metrics"
	"repute/internal/platform/middleware"
)

// requestTimeout bounds every API request end to end, including the
// settlement gateway's bounded retries.
const requestTimeout = 30 * time.Second

// Registrar is implemented by feature handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

// Options carries the router's cross-cutting dependencies.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// HealthChecks are probed by /healthz, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// NewRouter builds the service router. Feature handlers register their routes
// inside the shared middleware chain; health and metrics endpoints stay
// outside the timeout and latency instrumentation.
func NewRouter(opts Options, handlers ...Registrar) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Get("/healthz", healthHandler(logger, opts.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Recovery(logger))
		api.Use(middleware.RequestID)
		api.Use(middleware.RequestTime)
		api.Use(middleware.Logger(logger))
		if opts.Metrics != nil {
			api.Use(middleware.Latency(opts.Metrics))
		}
		api.Use(middleware.Timeout(requestTimeout))

		for _, h := range handlers {
			h.Register(api)
		}
	})

	return r
}

// healthHandler probes each registered dependency with a short deadline and
// reports per-dependency status. Any failing probe turns the response 503.
func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				deps[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
