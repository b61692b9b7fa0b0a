package rules

import (
	"encoding/json"
	"fmt"

	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

// Operator is a closed comparison operator set. Parse through ParseOperator
// at authoring boundaries so unknown operators cannot reach evaluation.
type Operator string

const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
	OpIn    Operator = "in"
	OpNotIn Operator = "not_in"
)

var knownOperators = map[Operator]struct{}{
	OpEq: {}, OpNeq: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {}, OpIn: {}, OpNotIn: {},
}

// ParseOperator validates a comparison operator.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if _, ok := knownOperators[op]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown condition operator: "+s)
	}
	return op, nil
}

func (o Operator) String() string { return string(o) }

// ConditionValue is the typed right-hand operand of a condition: a boolean,
// a number, a string, or a string list (for in/not_in). The tag makes the
// variant explicit rather than round-tripping through interface{}.
type ConditionValue struct {
	kind valueKind
	list []string
	b    bool
	n    float64
	s    string
}

// BoolVal builds a boolean operand.
func BoolVal(b bool) ConditionValue { return ConditionValue{kind: kindBool, b: b} }

// NumberVal builds a numeric operand.
func NumberVal(n float64) ConditionValue { return ConditionValue{kind: kindNumber, n: n} }

// StringVal builds a string operand.
func StringVal(s string) ConditionValue { return ConditionValue{kind: kindString, s: s} }

// ListVal builds a string-list operand for in/not_in membership tests.
func ListVal(items ...string) ConditionValue {
	// The copy is always non-nil so an authored empty list still counts as a
	// list operand.
	return ConditionValue{kind: kindAbsent, list: append(make([]string, 0, len(items)), items...)}
}

// IsList reports whether the operand is a string list.
func (v ConditionValue) IsList() bool { return v.list != nil }

// MarshalJSON renders the operand in its natural JSON shape. This feeds the
// canonical hash of rule snapshots, so the encoding is part of the frozen
// serialization contract: booleans, numbers, strings, and arrays exactly as
// authored.
func (v ConditionValue) MarshalJSON() ([]byte, error) {
	if v.list != nil {
		return json.Marshal(v.list)
	}
	switch v.kind {
	case kindBool:
		return json.Marshal(v.b)
	case kindNumber:
		return json.Marshal(v.n)
	case kindString:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts only the supported operand shapes.
func (v *ConditionValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case bool:
		*v = BoolVal(val)
	case float64:
		*v = NumberVal(val)
	case string:
		*v = StringVal(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return dErrors.New(dErrors.CodeInvalidInput,
					fmt.Sprintf("condition list values must be strings, got %T", item))
			}
			items = append(items, s)
		}
		*v = ListVal(items...)
	default:
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("unsupported condition value type %T", raw))
	}
	return nil
}

// Condition is one field comparison inside a composite rule.
type Condition struct {
	Field    Field          `json:"field"`
	Operator Operator       `json:"operator"`
	Value    ConditionValue `json:"value"`
}

// holds evaluates the condition against the context. The evaluator is total:
// type mismatches, absent fields, and wrong-shaped operands all evaluate to
// false rather than erroring, because a misauthored condition must never
// abort an evaluation whose result is about to be sealed into the ledger.
func (c Condition) holds(ctx *EvaluationContext) bool {
	resolved := resolve(c.Field, ctx)
	if resolved.kind == kindAbsent {
		return false
	}

	switch c.Operator {
	case OpEq:
		return equalValues(resolved, c.Value)
	case OpNeq:
		// neq against an absent field is unreachable here; absent already
		// returned false above, matching the source behavior.
		return !equalValues(resolved, c.Value)
	case OpGt, OpGte, OpLt, OpLte:
		if resolved.kind != kindNumber || c.Value.kind != kindNumber || c.Value.IsList() {
			return false
		}
		switch c.Operator {
		case OpGt:
			return resolved.n > c.Value.n
		case OpGte:
			return resolved.n >= c.Value.n
		case OpLt:
			return resolved.n < c.Value.n
		default:
			return resolved.n <= c.Value.n
		}
	case OpIn, OpNotIn:
		if !c.Value.IsList() || resolved.kind != kindString {
			return false
		}
		member := false
		for _, item := range c.Value.list {
			if item == resolved.s {
				member = true
				break
			}
		}
		if c.Operator == OpIn {
			return member
		}
		return !member
	default:
		return false
	}
}

func equalValues(resolved fieldValue, operand ConditionValue) bool {
	if operand.IsList() {
		return false
	}
	if resolved.kind != operand.kind {
		return false
	}
	switch resolved.kind {
	case kindBool:
		return resolved.b == operand.b
	case kindNumber:
		return resolved.n == operand.n
	case kindString:
		return resolved.s == operand.s
	default:
		return false
	}
}
