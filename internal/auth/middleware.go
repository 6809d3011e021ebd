package auth

import (
	"context"
	"net/http"

	"github.com/utafrali/adminconsole/internal/domain"
	apperrors "github.com/utafrali/adminconsole/pkg/errors"
	"github.com/utafrali/adminconsole/pkg/httputil"
	"github.com/utafrali/adminconsole/pkg/logger"
)

// HeaderSessionID carries the console session identifier on every request.
const HeaderSessionID = "X-Session-ID"

type contextKey string

const (
	sessionIDKey contextKey = "console_session_id"
	adminKey     contextKey = "console_admin"
)

// SessionIDFromContext returns the console session ID placed there by Guard,
// or "" outside a guarded handler.
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

// AdminFromContext returns the authenticated admin placed there by Guard.
func AdminFromContext(ctx context.Context) domain.Admin {
	admin, _ := ctx.Value(adminKey).(domain.Admin)
	return admin
}

// Guard rejects requests that do not belong to an authenticated console
// session. It resolves the X-Session-ID header against the session store and
// enriches the request context with the session and admin identifiers so
// downstream logging carries them.
func (c *Controller) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.Header.Get(HeaderSessionID)
		if sid == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized("missing session header"), c.logger)
			return
		}

		pair, err := c.sessions.Load(r.Context(), sid)
		if err != nil {
			httputil.WriteError(w, r, err, c.logger)
			return
		}
		if pair.Empty() {
			httputil.WriteError(w, r, apperrors.Unauthorized("not logged in"), c.logger)
			return
		}
		// An access token that carries an exp claim in the past cannot
		// succeed upstream; reject it here instead of waiting for the 401.
		if exp := tokenExpiry(pair.AccessToken); exp != nil && exp.Before(c.nowFunc()) {
			httputil.WriteError(w, r, apperrors.Unauthorized("session expired"), c.logger)
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sid)
		if admin, err := pair.Profile(); err == nil && admin.ID != "" {
			ctx = context.WithValue(ctx, adminKey, admin)
			ctx = logger.WithAdminID(ctx, admin.ID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
