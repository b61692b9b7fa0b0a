// Package models defines the decision ledger's record shapes.
package models

import (
	"encoding/json"
	"time"

	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
)

// DecisionType names the kind of decision a record captures. The writer is
// decoupled from transfers: any decision flow can append to the ledger.
type DecisionType string

const (
	DecisionTransferValidation DecisionType = "transfer_validation"
	DecisionInvestorOnboarding DecisionType = "investor_onboarding"
	DecisionEligibilityCheck   DecisionType = "eligibility_check"
)

// DecisionResult is the recorded outcome.
type DecisionResult string

const (
	ResultApproved  DecisionResult = "approved"
	ResultRejected  DecisionResult = "rejected"
	ResultSimulated DecisionResult = "simulated"
	ResultPending   DecisionResult = "pending"
)

// DecisionRecord is one immutable audit entry in the per-tenant ledger.
//
// Invariants:
//   - SequenceNumber is strictly increasing per tenant, assigned at creation,
//     never reused
//   - InputSnapshot, RuleVersionSnapshot, and ResultDetails are stored
//     verbatim as serialized at decision time; they are never re-marshaled
//     or reformatted afterwards, because the integrity hash covers the exact
//     bytes
//   - A record is created unsealed (IntegrityHash == PreviousHash == nil)
//     and sealed exactly once; sealing writes only those two fields
//   - Nothing mutates a sealed record
type DecisionRecord struct {
	ID                  id.RecordID     `json:"id"`
	DecisionType        DecisionType    `json:"decision_type"`
	TenantID            id.TenantID     `json:"tenant_id"`
	SubjectID           string          `json:"subject_id"`
	AssetID             *id.AssetID     `json:"asset_id,omitempty"`
	InputSnapshot       json.RawMessage `json:"input_snapshot"`
	RuleVersionSnapshot json.RawMessage `json:"rule_version_snapshot"`
	Result              DecisionResult  `json:"result"`
	ResultDetails       json.RawMessage `json:"result_details"`
	DecidedBy           string          `json:"decided_by,omitempty"`
	DecidedAt           time.Time       `json:"decided_at"`
	SequenceNumber      int64           `json:"sequence_number"`
	IntegrityHash       *string         `json:"integrity_hash,omitempty"`
	PreviousHash        *string         `json:"previous_hash,omitempty"`
}

// Sealed reports whether the record has been chained.
func (r *DecisionRecord) Sealed() bool {
	return r.IntegrityHash != nil
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// reach into the ledger's own memory.
func (r *DecisionRecord) Clone() *DecisionRecord {
	out := *r
	out.InputSnapshot = append(json.RawMessage(nil), r.InputSnapshot...)
	out.RuleVersionSnapshot = append(json.RawMessage(nil), r.RuleVersionSnapshot...)
	out.ResultDetails = append(json.RawMessage(nil), r.ResultDetails...)
	if r.AssetID != nil {
		a := *r.AssetID
		out.AssetID = &a
	}
	if r.IntegrityHash != nil {
		h := *r.IntegrityHash
		out.IntegrityHash = &h
	}
	if r.PreviousHash != nil {
		h := *r.PreviousHash
		out.PreviousHash = &h
	}
	return &out
}

// ChainReport is the outcome of a chain verification walk. A broken chain is
// the expected output of verification, not an error.
type ChainReport struct {
	Valid            bool         `json:"valid"`
	TotalVerified    int          `json:"total_verified"`
	BrokenAtSequence *int64       `json:"broken_at_sequence,omitempty"`
	BrokenAtID       *id.RecordID `json:"broken_at_id,omitempty"`
	ExpectedHash     string       `json:"expected_hash,omitempty"`
	ActualHash       string       `json:"actual_hash,omitempty"`
	Message          string       `json:"message"`
}
