package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	badgehandler "badgepass/internal/badge/handler"
	"badgepass/internal/platform/metrics"
	"badgepass/internal/ratelimit"
	"badgepass/pkg/platform/httputil"
	"badgepass/pkg/platform/middleware/admin"
	"badgepass/pkg/platform/middleware/auth"
	"badgepass/pkg/platform/middleware/metadata"
	"badgepass/pkg/platform/middleware/requesttime"
)

// healthTimeout bounds the dependency probe behind /healthz.
const healthTimeout = 2 * time.Second

// Deps are the collaborators the router mounts.
type Deps struct {
	Badges         *badgehandler.Handler
	AdminTokenHash []byte
	ScannerTokens  auth.JWTValidator
	ScannerScope   string
	// ScanLimit throttles scan endpoints per operator; nil disables it.
	ScanLimit      *ratelimit.Middleware
	Metrics        *metrics.HTTPMetrics
	MetricsHandler http.Handler
	// Health probes backing stores; nil means always healthy.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter wires public endpoints. Admin routes sit behind the admin token,
// scan routes behind a scoped scanner bearer token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", handleHealth(d.Health, d.Logger))
	metricsHandler := d.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Group(func(ar chi.Router) {
		ar.Use(admin.RequireAdminToken(d.AdminTokenHash, d.Logger))
		d.Badges.RegisterAdmin(ar)
	})
	r.Group(func(sr chi.Router) {
		sr.Use(auth.RequireScope(d.ScannerTokens, d.ScannerScope, d.Logger))
		if d.ScanLimit != nil {
			sr.Use(d.ScanLimit.PerOperator)
		}
		d.Badges.RegisterScanner(sr)
	})
	return r
}

func handleHealth(check func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
