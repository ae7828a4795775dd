// Package httpapi assembles the ops HTTP surface: liveness, readiness and
// metrics endpoints plus the versioned approval API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	approvalhandler "warden/internal/approval/handler"
	"warden/pkg/platform/httputil"
	"warden/pkg/platform/middleware/metadata"
	"warden/pkg/platform/middleware/requestid"
	"warden/pkg/platform/middleware/requesttime"
)

// readyProbeTimeout bounds each readiness probe so a hung dependency
// cannot stall the health check itself.
const readyProbeTimeout = 2 * time.Second

// ReadyCheck probes one dependency the server cannot serve without.
// Probes run in order on every /readyz request.
type ReadyCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// New assembles the full router. Health and metrics routes are
// unauthenticated; everything under /api/v1 carries its own auth.
func New(api *approvalhandler.Handler, checks ...ReadyCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", api.Register)

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(checks []ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		for _, check := range checks {
			if check.Probe == nil {
				continue
			}
			if err := check.Probe(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"failed": check.Name,
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
