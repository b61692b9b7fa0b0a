package http

import (
	"encoding/json"
	"net/http"

	"github.com/julianlaycock/caelith-sub002/internal/rules"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

// transferRequest is the wire shape for transfer validation calls. The
// evaluation context arrives fully resolved: the orchestrating service (out
// of scope here) has already loaded investor, holding, and rule snapshots.
type transferRequest struct {
	TenantID string                  `json:"tenant_id"`
	Context  rules.EvaluationContext `json:"context"`
}

func (h *Handler) decodeTransfer(r *http.Request) (id.TenantID, *rules.EvaluationContext, error) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return id.TenantID{}, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return id.TenantID{}, nil, err
	}
	return tenantID, &req.Context, nil
}

// validateTransfer runs a dry-run evaluation. The decision is still recorded
// and sealed, as "simulated", so simulations are auditable.
func (h *Handler) validateTransfer(w http.ResponseWriter, r *http.Request) {
	h.runTransfer(w, r, true)
}

// executeTransfer evaluates for real: approved or rejected.
func (h *Handler) executeTransfer(w http.ResponseWriter, r *http.Request) {
	h.runTransfer(w, r, false)
}

func (h *Handler) runTransfer(w http.ResponseWriter, r *http.Request, simulate bool) {
	tenantID, evalCtx, err := h.decodeTransfer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	dec, err := h.decisions.ValidateTransfer(r.Context(), tenantID, evalCtx, simulate)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if !simulate && !dec.Validation.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, dec)
}
