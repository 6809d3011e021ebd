package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/internal/auth"
	"github.com/utafrali/adminconsole/internal/config"
	"github.com/utafrali/adminconsole/internal/listing"
	"github.com/utafrali/adminconsole/internal/upstream"
	"github.com/utafrali/adminconsole/pkg/health"
	"github.com/utafrali/adminconsole/pkg/middleware"
)

// NewRouter creates a chi router with all console routes registered.
func NewRouter(
	cfg *config.Config,
	authCtrl *auth.Controller,
	backend *upstream.Client,
	listings *listing.Registry,
	audits *audit.Recorder,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	}))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("adminconsole"))
	r.Use(middleware.Tracing("adminconsole"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	authHandler := NewAuthHandler(authCtrl, listings, logger)
	resourceHandler := NewResourceHandler(backend, listings, audits, logger)
	orderHandler := NewOrderHandler(backend, listings, audits, logger)
	reviewHandler := NewReviewHandler(backend, listings, audits, logger)
	settingsHandler := NewSettingsHandler(backend, audits, logger)
	auditHandler := NewAuditHandler(audits, logger)

	// Login flow: no session yet, brute-force rate limited per IP.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger))

		r.Post("/login", authHandler.Login)
		r.Post("/verify", authHandler.Verify)
		r.Post("/resend", authHandler.Resend)

		// Session-bound auth endpoints.
		r.Group(func(r chi.Router) {
			r.Use(authCtrl.Guard)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})
	})

	// Console API: everything below requires an authenticated session.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authCtrl.Guard)

		r.Route("/resources/{resource}", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Get("/", resourceHandler.List)
			r.Post("/", resourceHandler.Create)
			r.Post("/search", resourceHandler.Search)
			r.Post("/refresh", resourceHandler.Refresh)
			r.Get("/{id}", resourceHandler.Get)
			r.Put("/{id}", resourceHandler.Update)
			r.Delete("/{id}", resourceHandler.Delete)
		})

		// Order fulfilment extras. The invoice endpoint streams a PDF, so it
		// stays outside the JSON content-type gate.
		r.Put("/resources/orders/{id}/status", resourceSpecific(orderHandler.UpdateStatus))
		r.Get("/resources/orders/{id}/invoice", orderHandler.Invoice)
		r.Post("/resources/reviews/{id}/moderate", resourceSpecific(reviewHandler.Moderate))

		r.Route("/settings", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Get("/", settingsHandler.Get)
			r.Put("/", settingsHandler.Update)
		})

		r.Get("/audit", auditHandler.List)
	})

	return r
}

// resourceSpecific applies the JSON content-type gate to a standalone
// resource action handler.
func resourceSpecific(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ContentTypeJSON(h).ServeHTTP(w, r)
	}
}
