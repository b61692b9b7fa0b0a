// Package domain holds typed identifiers and closed value types shared
// across the engine. IDs are UUID-backed and must be constructed through the
// Parse functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. A TenantID can
// never be passed where an InvestorID is expected.
type (
	// TenantID scopes records, sequence numbers, and hash chains.
	TenantID uuid.UUID

	// InvestorID identifies an investor snapshot party.
	InvestorID uuid.UUID

	// AssetID identifies the fund/asset a rule set belongs to.
	AssetID uuid.UUID

	// RecordID identifies a decision record in the ledger.
	RecordID uuid.UUID

	// RuleID identifies a composite rule.
	RuleID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be the nil UUID")
	}
	return u, nil
}

// ParseTenantID validates and returns a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant")
	return TenantID(u), err
}

// ParseInvestorID validates and returns an InvestorID.
func ParseInvestorID(s string) (InvestorID, error) {
	u, err := parseUUID(s, "investor")
	return InvestorID(u), err
}

// ParseAssetID validates and returns an AssetID.
func ParseAssetID(s string) (AssetID, error) {
	u, err := parseUUID(s, "asset")
	return AssetID(u), err
}

// ParseRecordID validates and returns a RecordID.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record")
	return RecordID(u), err
}

// ParseRuleID validates and returns a RuleID.
func ParseRuleID(s string) (RuleID, error) {
	u, err := parseUUID(s, "rule")
	return RuleID(u), err
}

func (id TenantID) String() string   { return uuid.UUID(id).String() }
func (id InvestorID) String() string { return uuid.UUID(id).String() }
func (id AssetID) String() string    { return uuid.UUID(id).String() }
func (id RecordID) String() string   { return uuid.UUID(id).String() }
func (id RuleID) String() string     { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id InvestorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AssetID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RuleID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps typed IDs rendering as canonical UUID strings in
// JSON payloads and snapshots. Defined types do not inherit uuid.UUID's
// marshalers, so these are spelled out.

func (id TenantID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id InvestorID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AssetID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id RecordID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id RuleID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *InvestorID) UnmarshalText(b []byte) error {
	parsed, err := ParseInvestorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AssetID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RuleID) UnmarshalText(b []byte) error {
	parsed, err := ParseRuleID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
