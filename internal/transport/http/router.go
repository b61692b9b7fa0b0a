// Package http wires the engine's HTTP surface: the transfer validation
// endpoints and the admin-only ledger operations. Everything else the
// platform does (auth, rule CRUD, reporting) lives in collaborator services.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianlaycock/caelith-sub002/internal/decision"
	ledgerhandler "github.com/julianlaycock/caelith-sub002/internal/ledger/handler"
	"github.com/julianlaycock/caelith-sub002/internal/platform/middleware"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

// Handler bundles the services the routes need.
type Handler struct {
	decisions *decision.Service
	logger    *slog.Logger
}

func NewHandler(decisions *decision.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{decisions: decisions, logger: logger}
}

// NewRouter assembles the full route tree.
func NewRouter(h *Handler, ledger *ledgerhandler.Handler, adminToken string) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMeta)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/transfers/validate", h.validateTransfer)
		r.Post("/transfers", h.executeTransfer)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, h.logger))
		ledger.Routes(r)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeInvariantViolation:
		status = http.StatusBadRequest
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodeConflict:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
