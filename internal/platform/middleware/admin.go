// Package middleware holds HTTP middleware shared by the transport layer.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/julianlaycock/caelith-sub002/pkg/requestcontext"
)

// RequireAdminToken guards privileged ledger operations. Verification and
// repair endpoints are admin-only by contract; they are never invoked inline
// with request handling.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(
				requestcontext.WithActorID(r.Context(), "admin")))
		})
	}
}
