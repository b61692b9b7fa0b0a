// Package service holds the decision ledger's write and integrity services.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/julianlaycock/caelith-sub002/internal/ledger/models"
	"github.com/julianlaycock/caelith-sub002/internal/ledger/store"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
	"github.com/julianlaycock/caelith-sub002/pkg/requestcontext"
)

// Writer appends unsealed decision records to the ledger. It is decoupled
// from the rules engine: snapshots arrive as arbitrary values and are
// serialized once, here, so what is stored is exactly what was decided on
// and later mutation of live rule sets cannot reach into sealed history.
type Writer struct {
	records store.RecordStore
	logger  *slog.Logger
}

func NewWriter(records store.RecordStore, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{records: records, logger: logger}
}

// WriteParams carries everything needed to record one decision.
type WriteParams struct {
	DecisionType models.DecisionType
	TenantID     id.TenantID
	SubjectID    string
	AssetID      *id.AssetID
	// InputSnapshot is the evaluated context; RuleSnapshot is the exact rule
	// state evaluated against. Both are deep-copied via serialization.
	InputSnapshot any
	RuleSnapshot  any
	Result        models.DecisionResult
	ResultDetails any
	DecidedBy     string
}

// Write persists a new unsealed record with the tenant's next sequence
// number. DecidedAt comes from the request-scoped clock.
func (w *Writer) Write(ctx context.Context, params WriteParams) (*models.DecisionRecord, error) {
	if params.TenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	if params.DecisionType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "decision type is required")
	}

	input, err := marshalSnapshot(params.InputSnapshot, "input snapshot")
	if err != nil {
		return nil, err
	}
	ruleSnap, err := marshalSnapshot(params.RuleSnapshot, "rule snapshot")
	if err != nil {
		return nil, err
	}
	details, err := marshalSnapshot(params.ResultDetails, "result details")
	if err != nil {
		return nil, err
	}

	record := &models.DecisionRecord{
		ID:                  id.RecordID(uuid.New()),
		DecisionType:        params.DecisionType,
		TenantID:            params.TenantID,
		SubjectID:           params.SubjectID,
		AssetID:             params.AssetID,
		InputSnapshot:       input,
		RuleVersionSnapshot: ruleSnap,
		Result:              params.Result,
		ResultDetails:       details,
		DecidedBy:           params.DecidedBy,
		DecidedAt:           requestcontext.Now(ctx).UTC(),
	}

	if err := w.records.Insert(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "insert decision record")
	}

	w.logger.InfoContext(ctx, "decision recorded",
		"tenant_id", record.TenantID.String(),
		"record_id", record.ID.String(),
		"decision_type", string(record.DecisionType),
		"result", string(record.Result),
		"sequence", record.SequenceNumber,
	)
	return record, nil
}

func marshalSnapshot(v any, what string) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return append(json.RawMessage(nil), raw...), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "serialize "+what)
	}
	return b, nil
}
