package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	analysishandler "numintel/internal/analysis/handler"
	"numintel/internal/dashboard"
	"numintel/internal/platform/metrics"
	ratelimit "numintel/internal/ratelimit/middleware"
	"numintel/pkg/platform/httputil"
	"numintel/pkg/platform/middleware/metadata"
	"numintel/pkg/platform/middleware/request"
	"numintel/pkg/platform/middleware/requesttime"
)

const (
	healthTimeout = 2 * time.Second
	// batchPeekBytes bounds how much of a /batch body the rate limiter reads
	// to count its numbers.
	batchPeekBytes = 1 << 20
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the pieces NewRouter mounts. Everything but Analysis is optional.
type Deps struct {
	Analysis  *analysishandler.Handler
	Dashboard *dashboard.Handler
	RateLimit *ratelimit.Middleware
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Health    map[string]HealthCheck
}

// NewRouter wires the public endpoints. Classification routes sit behind the
// rate limiter; health, metrics and the dashboard do not.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(d.Metrics.Middleware)

	r.Get("/healthz", healthHandler(d.Health))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Dashboard != nil {
		r.Route("/dashboard", d.Dashboard.Register)
	}

	r.Group(func(api chi.Router) {
		if d.RateLimit != nil {
			api.Use(d.RateLimit.Limit(apiCost))
		}
		d.Analysis.Register(api)
	})
	return r
}

var batchCost = ratelimit.BatchCost(batchPeekBytes)

// apiCost charges /batch per number and everything else one unit.
func apiCost(r *http.Request) int {
	if r.Method == http.MethodPost && r.URL.Path == "/batch" {
		return batchCost(r)
	}
	return ratelimit.UnitCost(r)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
