// Package http assembles the HTTP API surface.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "memberd/internal/audit/handler"
	authnhandler "memberd/internal/authn/handler"
	"memberd/internal/authz"
	"memberd/internal/event"
	memberhandler "memberd/internal/member/handler"
	typehandler "memberd/internal/membershiptype/handler"
	"memberd/internal/platform/metrics"
	"memberd/internal/platform/middleware"
)

// Handlers groups the per-domain handlers the router mounts.
type Handlers struct {
	Auth    *authnhandler.Handler
	Members *memberhandler.Handler
	Types   *typehandler.Handler
	Events  *event.Handler
	Audit   *audithandler.Handler
}

// New wires middleware and mounts all routes. Login, health and metrics sit
// outside authentication; everything else requires a valid bearer token.
func New(h Handlers, validator middleware.TokenValidator, m *metrics.Metrics, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Mount("/auth", h.Auth.LoginRoutes())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(validator, logger))
			r.Mount("/users", h.Auth.UserRoutes())
			r.Mount("/members", h.Members.Routes())
			r.Mount("/membership-types", h.Types.Routes())
			r.Mount("/events", h.Events.Routes())
			r.With(middleware.RequireCapability(authz.AuditRead, logger)).
				Mount("/audit", h.Audit.Routes())
		})
	})

	return r
}
