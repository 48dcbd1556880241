// Package http assembles the public router: shared middleware, the metrics
// and health endpoints, and every domain handler mounted behind
// authentication.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditHandler "amicale/internal/audit/handler"
	conditionHandler "amicale/internal/condition/handler"
	contributionHandler "amicale/internal/contribution/handler"
	directoryHandler "amicale/internal/directory/handler"
	eligibilityHandler "amicale/internal/eligibility/handler"
	mwauth "amicale/pkg/platform/middleware/auth"
	"amicale/pkg/platform/middleware/metadata"
	"amicale/pkg/platform/middleware/request"
	"amicale/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router needs. Handlers register themselves;
// the router only owns middleware ordering and the unauthenticated surface.
type Deps struct {
	Logger            *slog.Logger
	TokenValidator    mwauth.TokenValidator
	RevocationChecker mwauth.TokenRevocationChecker
	Directory         *directoryHandler.Handler
	Contribution      *contributionHandler.Handler
	Condition         *conditionHandler.Handler
	Eligibility       *eligibilityHandler.Handler
	Audit             *auditHandler.Handler
	Health            func() error
}

// New builds the HTTP handler. The request time is stamped first so every
// later stage, including audit timestamps, shares one trusted instant.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requesttime.WithRequestTime)
	r.Use(request.WithRequestID)
	r.Use(metadata.WithClientMetadata)

	r.Get("/healthz", handleHealth(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(mwauth.RequireAuth(deps.TokenValidator, deps.RevocationChecker, deps.Logger))
		deps.Directory.Register(r)
		deps.Contribution.Register(r)
		deps.Condition.Register(r)
		deps.Eligibility.Register(r)
		deps.Audit.Register(r)
	})

	return r
}

func handleHealth(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
