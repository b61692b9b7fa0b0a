package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianlaycock/caelith-sub002/pkg/requestcontext"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var gotActor string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = requestcontext.ActorID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireAdminToken("secret", logger)(next)

	t.Run("missing token is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ledger/verify", nil)
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ledger/verify", nil)
		req.Header.Set("X-Admin-Token", "guess")
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("correct token passes and sets the actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ledger/verify", nil)
		req.Header.Set("X-Admin-Token", "secret")
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "admin", gotActor)
	})
}
