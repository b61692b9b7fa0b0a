package rules

import (
	"fmt"

	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

// CompositeOperator combines a rule's conditions: AND (all), OR (any),
// NOT (negation of exactly one condition).
type CompositeOperator string

const (
	OpAnd CompositeOperator = "AND"
	OpOr  CompositeOperator = "OR"
	OpNot CompositeOperator = "NOT"
)

// ParseCompositeOperator validates a composite operator.
func ParseCompositeOperator(s string) (CompositeOperator, error) {
	switch op := CompositeOperator(s); op {
	case OpAnd, OpOr, OpNot:
		return op, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown composite operator: "+s)
	}
}

// CompositeRule is a user-authored boolean condition tree layered on top of
// the built-in checks. Rules are snapshotted verbatim into decision records,
// so the struct's JSON shape is part of the canonical hash contract.
type CompositeRule struct {
	ID          id.RuleID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Operator    CompositeOperator `json:"operator"`
	Conditions  []Condition       `json:"conditions"`
	Enabled     bool              `json:"enabled"`
}

// Validate enforces structural invariants at authoring time, before a rule
// is stored or evaluated:
//   - operator must be AND, OR, or NOT
//   - at least one condition
//   - NOT carries exactly one condition
//   - every condition's field and operator are in the closed vocabularies
//
// The evaluator itself stays total and will still evaluate an unvalidated
// rule (NOT negates the first condition), but a rule that fails Validate is
// a structural authoring error and must be rejected at creation.
func (r CompositeRule) Validate() error {
	if _, err := ParseCompositeOperator(string(r.Operator)); err != nil {
		return err
	}
	if len(r.Conditions) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("composite rule %q has no conditions", r.Name))
	}
	if r.Operator == OpNot && len(r.Conditions) != 1 {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("NOT rule %q must have exactly one condition, has %d", r.Name, len(r.Conditions)))
	}
	for i, c := range r.Conditions {
		if !c.Field.Known() {
			return dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("condition %d of rule %q: unknown field %q", i, r.Name, c.Field))
		}
		if _, ok := knownOperators[c.Operator]; !ok {
			return dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("condition %d of rule %q: unknown operator %q", i, r.Name, c.Operator))
		}
	}
	return nil
}

// passes evaluates the rule's condition tree against the context. Callers
// must only invoke this for enabled rules; the disabled short-circuit lives
// in the validator so the skip shows up in the check trace.
func (r CompositeRule) passes(ctx *EvaluationContext) bool {
	switch r.Operator {
	case OpAnd:
		for _, c := range r.Conditions {
			if !c.holds(ctx) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range r.Conditions {
			if c.holds(ctx) {
				return true
			}
		}
		return false
	case OpNot:
		if len(r.Conditions) == 0 {
			return false
		}
		return !r.Conditions[0].holds(ctx)
	default:
		return false
	}
}
