package rules

import (
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

// Field is a symbolic path into the evaluation context. The vocabulary is
// closed: conditions are parsed through ParseField at authoring boundaries,
// so an unknown field is rejected before it ever reaches evaluation.
type Field string

const (
	FieldFromJurisdiction Field = "from.jurisdiction"
	FieldFromAccredited   Field = "from.accredited"
	FieldFromInvestorType Field = "from.investor_type"
	FieldFromKYCStatus    Field = "from.kyc_status"

	FieldToJurisdiction Field = "to.jurisdiction"
	FieldToAccredited   Field = "to.accredited"
	FieldToInvestorType Field = "to.investor_type"
	FieldToKYCStatus    Field = "to.kyc_status"

	FieldTransferUnits         Field = "transfer.units"
	FieldTransferExecutionDate Field = "transfer.execution_date"

	FieldHoldingUnits      Field = "holding.units"
	FieldHoldingAcquiredAt Field = "holding.acquired_at"
)

var knownFields = map[Field]struct{}{
	FieldFromJurisdiction:      {},
	FieldFromAccredited:        {},
	FieldFromInvestorType:      {},
	FieldFromKYCStatus:         {},
	FieldToJurisdiction:        {},
	FieldToAccredited:          {},
	FieldToInvestorType:        {},
	FieldToKYCStatus:           {},
	FieldTransferUnits:         {},
	FieldTransferExecutionDate: {},
	FieldHoldingUnits:          {},
	FieldHoldingAcquiredAt:     {},
}

// ParseField validates a symbolic field path against the closed vocabulary.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if _, ok := knownFields[f]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown rule field: "+s)
	}
	return f, nil
}

// Known reports whether the field is part of the vocabulary. Conditions
// carrying an unknown field (possible when snapshots are deserialized from
// older data) resolve to nothing and fail every operator.
func (f Field) Known() bool {
	_, ok := knownFields[f]
	return ok
}

func (f Field) String() string { return string(f) }

// fieldValue is the resolved, typed value of a field. Exactly one of the
// typed members is meaningful, selected by kind. Absent values (unknown
// field, missing holding) fail every condition without erroring.
type fieldValue struct {
	kind valueKind
	b    bool
	n    float64
	s    string
}

type valueKind int

const (
	kindAbsent valueKind = iota
	kindBool
	kindNumber
	kindString
)

func boolValue(b bool) fieldValue      { return fieldValue{kind: kindBool, b: b} }
func numberValue(n float64) fieldValue { return fieldValue{kind: kindNumber, n: n} }
func stringValue(s string) fieldValue  { return fieldValue{kind: kindString, s: s} }

// resolve maps a field to its value in the context. Timestamps resolve to
// Unix milliseconds so the ordering operators apply to them directly.
func resolve(f Field, ctx *EvaluationContext) fieldValue {
	switch f {
	case FieldFromJurisdiction:
		return stringValue(ctx.FromInvestor.Jurisdiction)
	case FieldFromAccredited:
		return boolValue(ctx.FromInvestor.Accredited)
	case FieldFromInvestorType:
		return stringValue(string(ctx.FromInvestor.InvestorType))
	case FieldFromKYCStatus:
		return stringValue(string(ctx.FromInvestor.KYCStatus))
	case FieldToJurisdiction:
		return stringValue(ctx.ToInvestor.Jurisdiction)
	case FieldToAccredited:
		return boolValue(ctx.ToInvestor.Accredited)
	case FieldToInvestorType:
		return stringValue(string(ctx.ToInvestor.InvestorType))
	case FieldToKYCStatus:
		return stringValue(string(ctx.ToInvestor.KYCStatus))
	case FieldTransferUnits:
		return numberValue(float64(ctx.Transfer.Units))
	case FieldTransferExecutionDate:
		return numberValue(float64(ctx.Transfer.ExecutionDate.UnixMilli()))
	case FieldHoldingUnits:
		if ctx.FromHolding == nil {
			return fieldValue{}
		}
		return numberValue(float64(ctx.FromHolding.Units))
	case FieldHoldingAcquiredAt:
		if ctx.FromHolding == nil {
			return fieldValue{}
		}
		return numberValue(float64(ctx.FromHolding.AcquiredAt.UnixMilli()))
	default:
		return fieldValue{}
	}
}
