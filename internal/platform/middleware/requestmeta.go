package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/julianlaycock/caelith-sub002/pkg/requestcontext"
)

// RequestMeta copies chi's request ID and a request-scoped timestamp into
// the HTTP-free requestcontext accessors, so services never import chi.
// Mount after chi's middleware.RequestID.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
