// Package middleware provides reusable HTTP middleware for the portal API.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/eventops/portal/internal/logging"
	"github.com/eventops/portal/internal/session"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// PrincipalFrom returns the principal resolved by RequireAdmin.
// The second return is false on routes that did not pass through it.
func PrincipalFrom(ctx context.Context) (session.Principal, bool) {
	p, ok := ctx.Value(principalKey).(session.Principal)
	return p, ok
}

// RequireAdmin guards the admin surface. It resolves the session cookie to
// a principal and rejects callers that are not an active admin, before any
// handler (and therefore any pipeline work) runs.
func RequireAdmin(sessions session.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				logging.FromContext(r.Context()).Warn("auth: missing session cookie",
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeAuthError(w, http.StatusUnauthorized, "authentication required", "AUTH_MISSING_SESSION")
				return
			}

			principal, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrInvalidSession) {
					writeAuthError(w, http.StatusUnauthorized, "invalid or expired session", "AUTH_INVALID_SESSION")
					return
				}
				logging.FromContext(r.Context()).Error("auth: session lookup failed", "error", err)
				writeAuthError(w, http.StatusInternalServerError, "session verification failed", "AUTH_LOOKUP_FAILED")
				return
			}

			if !principal.Admin() {
				logging.FromContext(r.Context()).Warn("auth: forbidden",
					"path", r.URL.Path,
					"role", string(principal.Role),
					"access_status", principal.AccessStatus,
				)
				writeAuthError(w, http.StatusForbidden, "admin access required", "AUTH_FORBIDDEN")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
