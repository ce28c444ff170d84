package service

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/secretsanta/internal/auth"
	"github.com/mmynk/secretsanta/internal/draw"
	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/membership"
	"github.com/mmynk/secretsanta/internal/metrics"
	"github.com/mmynk/secretsanta/internal/middleware"
	"github.com/mmynk/secretsanta/internal/profiles"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Groups     *groups.Service
	Membership *membership.Service
	Profiles   *profiles.Service
	Draw       *draw.Engine
	Identity   auth.IdentityProvider
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

// NewRouter builds the chi router serving every Connect procedure plus
// /healthz and, when a gatherer is set, /metrics.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Outermost first: metrics see every code, logging sees the caller.
	interceptors := []connect.Interceptor{}
	if d.Metrics != nil {
		interceptors = append(interceptors, middleware.MetricsInterceptor(d.Metrics))
	}
	interceptors = append(interceptors,
		middleware.RequireAuth(d.Identity),
		middleware.LoggingInterceptor(),
		middleware.ValidationInterceptor(validator.New(validator.WithRequiredStructEnabled())),
	)
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(interceptors...),
	}

	NewGroupService(d.Groups).Register(r, opts...)
	NewMembershipService(d.Groups, d.Membership, d.Profiles).Register(r, opts...)
	NewDrawService(d.Groups, d.Membership, d.Profiles, d.Draw).Register(r, opts...)
	NewProfileService(d.Profiles).Register(r, opts...)
	return r
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
