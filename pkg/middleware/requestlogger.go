package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/adminconsole/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, admin_id, trace_id, and span_id, then stores it in
// context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// This middleware should be mounted AFTER RequestLogging (which sets
// correlation_id) and Tracing (which sets the OpenTelemetry span context).
// The session guard re-enriches the logger with admin_id once the console
// session has been resolved, so here the X-Admin-ID header is only a hint for
// requests arriving through an edge proxy that already did the resolution.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			adminID := logger.AdminIDFromContext(ctx)
			if adminID == "" {
				adminID = r.Header.Get("X-Admin-ID")
			}
			if adminID != "" {
				ctx = logger.WithAdminID(ctx, adminID)
			}

			// Build enriched logger with all available context fields
			// (correlation_id, admin_id, trace_id, span_id).
			enriched := logger.WithContext(ctx, base)

			// Store the enriched logger in context for downstream handlers.
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
