package rules

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
)

func newRule(op CompositeOperator, conditions ...Condition) CompositeRule {
	return CompositeRule{
		ID:          id.RuleID(uuid.New()),
		Name:        "Test Rule",
		Description: "exercises the condition tree",
		Operator:    op,
		Conditions:  conditions,
		Enabled:     true,
	}
}

func TestCompositeRule_And(t *testing.T) {
	ctx := newEvalContext()
	ctx.ToInvestor.Jurisdiction = "DE"
	ctx.ToInvestor.KYCStatus = KYCVerified

	t.Run("passes when every condition holds", func(t *testing.T) {
		ctx.CustomRules = []CompositeRule{newRule(OpAnd,
			Condition{Field: FieldToJurisdiction, Operator: OpEq, Value: StringVal("DE")},
			Condition{Field: FieldToKYCStatus, Operator: OpEq, Value: StringVal("verified")},
		)}

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
		assert.Equal(t, "8/8 checks passed", result.Summary)
	})

	t.Run("fails when any condition fails", func(t *testing.T) {
		ctx.CustomRules = []CompositeRule{newRule(OpAnd,
			Condition{Field: FieldToJurisdiction, Operator: OpEq, Value: StringVal("DE")},
			Condition{Field: FieldToKYCStatus, Operator: OpEq, Value: StringVal("pending")},
		)}

		result := Evaluate(ctx)

		require.False(t, result.Valid)
		assert.Contains(t, result.Violations,
			"Test Rule: failed — exercises the condition tree")
	})
}

func TestCompositeRule_Or(t *testing.T) {
	ctx := newEvalContext()

	t.Run("passes when any condition holds", func(t *testing.T) {
		ctx.CustomRules = []CompositeRule{newRule(OpOr,
			Condition{Field: FieldToJurisdiction, Operator: OpEq, Value: StringVal("JP")},
			Condition{Field: FieldToAccredited, Operator: OpEq, Value: BoolVal(true)},
		)}

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
	})

	t.Run("fails when no condition holds", func(t *testing.T) {
		ctx.CustomRules = []CompositeRule{newRule(OpOr,
			Condition{Field: FieldToJurisdiction, Operator: OpEq, Value: StringVal("JP")},
			Condition{Field: FieldToAccredited, Operator: OpEq, Value: BoolVal(false)},
		)}

		result := Evaluate(ctx)

		assert.False(t, result.Valid)
	})
}

func TestCompositeRule_Not(t *testing.T) {
	ctx := newEvalContext()

	t.Run("negates a failing condition", func(t *testing.T) {
		ctx.CustomRules = []CompositeRule{newRule(OpNot,
			Condition{Field: FieldToInvestorType, Operator: OpEq, Value: StringVal("retail")},
		)}

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
	})

	t.Run("negates a passing condition", func(t *testing.T) {
		ctx.CustomRules = []CompositeRule{newRule(OpNot,
			Condition{Field: FieldToAccredited, Operator: OpEq, Value: BoolVal(true)},
		)}

		result := Evaluate(ctx)

		assert.False(t, result.Valid)
	})
}

func TestCompositeRule_Disabled(t *testing.T) {
	ctx := newEvalContext()
	rule := newRule(OpAnd,
		Condition{Field: FieldToJurisdiction, Operator: OpEq, Value: StringVal("JP")},
	)
	rule.Enabled = false
	ctx.CustomRules = []CompositeRule{rule}

	result := Evaluate(ctx)

	// A disabled rule that would fail must not affect validity, but it still
	// shows up in the trace as skipped.
	require.True(t, result.Valid)
	require.Len(t, result.Checks, 8)
	last := result.Checks[7]
	assert.Equal(t, "Test Rule", last.Rule)
	assert.True(t, last.Passed)
	assert.Equal(t, "skipped (disabled)", last.Message)
}

func TestCompositeRule_PassMessageIsDescription(t *testing.T) {
	ctx := newEvalContext()
	ctx.CustomRules = []CompositeRule{newRule(OpAnd,
		Condition{Field: FieldToAccredited, Operator: OpEq, Value: BoolVal(true)},
	)}

	result := Evaluate(ctx)

	require.Len(t, result.Checks, 8)
	assert.Equal(t, "exercises the condition tree", result.Checks[7].Message)
}

func TestCompositeRule_Validate(t *testing.T) {
	valid := Condition{Field: FieldToJurisdiction, Operator: OpEq, Value: StringVal("LU")}

	t.Run("accepts a well-formed rule", func(t *testing.T) {
		assert.NoError(t, newRule(OpAnd, valid).Validate())
		assert.NoError(t, newRule(OpNot, valid).Validate())
	})

	t.Run("rejects an unknown operator", func(t *testing.T) {
		rule := newRule(OpAnd, valid)
		rule.Operator = "XOR"

		err := rule.Validate()

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects an empty condition list", func(t *testing.T) {
		err := newRule(OpAnd).Validate()

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects NOT with more than one condition", func(t *testing.T) {
		err := newRule(OpNot, valid, valid).Validate()

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects an unknown field", func(t *testing.T) {
		rule := newRule(OpAnd, Condition{
			Field: "to.shoe_size", Operator: OpEq, Value: NumberVal(43),
		})

		err := rule.Validate()

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects an unknown condition operator", func(t *testing.T) {
		rule := newRule(OpAnd, Condition{
			Field: FieldToJurisdiction, Operator: "matches", Value: StringVal("LU"),
		})

		err := rule.Validate()

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseCompositeOperator(t *testing.T) {
	for _, s := range []string{"AND", "OR", "NOT"} {
		op, err := ParseCompositeOperator(s)
		require.NoError(t, err)
		assert.Equal(t, CompositeOperator(s), op)
	}

	_, err := ParseCompositeOperator("and")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
