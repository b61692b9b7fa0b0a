// Package rules implements the compliance rule evaluation engine: seven
// built-in structural checks plus user-authored composite AND/OR/NOT rules,
// evaluated against a point-in-time snapshot of investor and holding state.
//
// Evaluation is a pure function of the context. It never mutates its input
// and never fails for well-typed input; rule violations are results, not
// errors. Determinism matters here: the ValidationResult is embedded
// verbatim into hash-chained decision records, so check order and message
// content must be byte-identical across runs.
package rules

import (
	"time"

	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
)

// InvestorType classifies an investor under the fund's distribution rules.
type InvestorType string

const (
	InvestorInstitutional    InvestorType = "institutional"
	InvestorProfessional     InvestorType = "professional"
	InvestorSemiProfessional InvestorType = "semi_professional"
	InvestorWellInformed     InvestorType = "well_informed"
	InvestorRetail           InvestorType = "retail"
)

// KYCStatus is the verification state of an investor's KYC file.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCExpired  KYCStatus = "expired"
	KYCRejected KYCStatus = "rejected"
)

// Transfer is the proposed movement of units under evaluation.
type Transfer struct {
	AssetID        id.AssetID    `json:"asset_id"`
	FromInvestorID id.InvestorID `json:"from_investor_id"`
	ToInvestorID   id.InvestorID `json:"to_investor_id"`
	Units          int64         `json:"units"`
	ExecutionDate  time.Time     `json:"execution_date"`
}

// Investor is a point-in-time snapshot of one party to the transfer.
// Jurisdiction is ISO 3166-1 alpha-2.
type Investor struct {
	ID           id.InvestorID `json:"id"`
	Name         string        `json:"name"`
	Jurisdiction string        `json:"jurisdiction"`
	Accredited   bool          `json:"accredited"`
	InvestorType InvestorType  `json:"investor_type"`
	KYCStatus    KYCStatus     `json:"kyc_status"`
	KYCExpiry    *time.Time    `json:"kyc_expiry,omitempty"`
}

// Holding is the sender's position in the asset. A nil Holding on the
// context is meaningful: the sender has no position at all.
type Holding struct {
	InvestorID id.InvestorID `json:"investor_id"`
	AssetID    id.AssetID    `json:"asset_id"`
	Units      int64         `json:"units"`
	AcquiredAt time.Time     `json:"acquired_at"`
}

// RuleSet is the asset's active structural rule configuration.
//
// An empty JurisdictionWhitelist means unrestricted. A nil TransferWhitelist
// means unrestricted; an empty non-nil whitelist blocks every recipient.
// Because nil and empty carry different meanings, TransferWhitelist must
// serialize as null versus [] and never be dropped from snapshots.
type RuleSet struct {
	QualificationRequired bool            `json:"qualification_required"`
	LockupDays            int             `json:"lockup_days"`
	JurisdictionWhitelist []string        `json:"jurisdiction_whitelist"`
	TransferWhitelist     []id.InvestorID `json:"transfer_whitelist"`
}

// EvaluationContext carries everything one evaluation needs. It is treated
// as immutable for the duration of the call.
type EvaluationContext struct {
	Transfer     Transfer        `json:"transfer"`
	FromInvestor Investor        `json:"from_investor"`
	ToInvestor   Investor        `json:"to_investor"`
	FromHolding  *Holding        `json:"from_holding,omitempty"`
	Rules        RuleSet         `json:"rules"`
	CustomRules  []CompositeRule `json:"custom_rules,omitempty"`
}

// CheckResult is the outcome of a single built-in check or composite rule.
type CheckResult struct {
	Rule    string `json:"rule"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// ValidationResult is the full evaluation trace: built-in checks first in
// registration order, then composite rules in input order.
type ValidationResult struct {
	Valid      bool          `json:"valid"`
	Violations []string      `json:"violations"`
	Checks     []CheckResult `json:"checks"`
	Summary    string        `json:"summary"`
}
