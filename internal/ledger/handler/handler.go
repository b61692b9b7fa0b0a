// Package handler exposes the admin-only ledger operations over HTTP:
// chain verification, batch sealing, and record inspection. These are
// operator tools, never called inline with decision handling.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	ledgersvc "github.com/julianlaycock/caelith-sub002/internal/ledger/service"
	"github.com/julianlaycock/caelith-sub002/internal/platform/metrics"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

// Handler wires HTTP endpoints to the integrity service.
type Handler struct {
	integrity *ledgersvc.Integrity
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(integrity *ledgersvc.Integrity, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{integrity: integrity, metrics: m, logger: logger}
}

// Routes registers the admin ledger endpoints. Mount behind the admin token
// middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ledger/verify", h.verifyChain)
	r.Post("/ledger/seal", h.sealAll)
	r.Get("/ledger/records/{recordID}", h.getRecord)
}

// verifyChain walks a tenant's hash chain and reports the first break, if
// any. Query params: tenant_id (required), limit (optional window cap).
func (h *Handler) verifyChain(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
	}

	report, err := h.integrity.VerifyChain(r.Context(), tenantID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveVerification(report.Valid)
	}
	if !report.Valid {
		h.logger.WarnContext(r.Context(), "chain verification failed",
			"tenant_id", tenantID.String(),
			"message", report.Message,
		)
	}
	writeJSON(w, http.StatusOK, report)
}

type sealRequest struct {
	TenantID string `json:"tenant_id"`
}

type sealResponse struct {
	Sealed int `json:"sealed"`
}

// sealAll seals every unsealed record for a tenant in sequence order.
func (h *Handler) sealAll(w http.ResponseWriter, r *http.Request) {
	var req sealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.integrity.SealAllUnsealed(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.metrics != nil && count > 0 {
		h.metrics.RecordsSealed.Add(float64(count))
	}
	writeJSON(w, http.StatusOK, sealResponse{Sealed: count})
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.integrity.GetRecord(r.Context(), tenantID, recordID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
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
