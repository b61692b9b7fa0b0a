package rules

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
)

// newEvalContext builds a context that passes all seven built-in checks:
// distinct accredited parties, a holding comfortably past its lockup, and a
// recipient inside the jurisdiction whitelist.
func newEvalContext() *EvaluationContext {
	fromID := id.InvestorID(uuid.New())
	toID := id.InvestorID(uuid.New())
	assetID := id.AssetID(uuid.New())
	execution := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	return &EvaluationContext{
		Transfer: Transfer{
			AssetID:        assetID,
			FromInvestorID: fromID,
			ToInvestorID:   toID,
			Units:          100,
			ExecutionDate:  execution,
		},
		FromInvestor: Investor{
			ID:           fromID,
			Name:         "Alpha Capital SA",
			Jurisdiction: "LU",
			Accredited:   true,
			InvestorType: InvestorInstitutional,
			KYCStatus:    KYCVerified,
		},
		ToInvestor: Investor{
			ID:           toID,
			Name:         "Beta Vermoegen GmbH",
			Jurisdiction: "DE",
			Accredited:   true,
			InvestorType: InvestorProfessional,
			KYCStatus:    KYCVerified,
		},
		FromHolding: &Holding{
			InvestorID: fromID,
			AssetID:    assetID,
			Units:      1000,
			AcquiredAt: execution.Add(-400 * 24 * time.Hour),
		},
		Rules: RuleSet{
			QualificationRequired: true,
			LockupDays:            365,
			JurisdictionWhitelist: []string{"LU", "DE"},
		},
	}
}

func TestEvaluate_AllChecksPass(t *testing.T) {
	ctx := newEvalContext()

	result := Evaluate(ctx)

	require.True(t, result.Valid)
	assert.Empty(t, result.Violations)
	assert.Len(t, result.Checks, 7)
	assert.Equal(t, "7/7 checks passed", result.Summary)
	for _, check := range result.Checks {
		assert.True(t, check.Passed, "check %s should pass", check.Rule)
	}
}

func TestEvaluate_ChecksRunInFixedOrder(t *testing.T) {
	ctx := newEvalContext()

	result := Evaluate(ctx)

	want := []string{
		"self_transfer",
		"positive_units",
		"sufficient_units",
		"qualification",
		"lockup_period",
		"jurisdiction_whitelist",
		"transfer_whitelist",
	}
	require.Len(t, result.Checks, len(want))
	for i, name := range want {
		assert.Equal(t, name, result.Checks[i].Rule)
	}
}

func TestEvaluate_SelfTransfer(t *testing.T) {
	ctx := newEvalContext()
	ctx.Transfer.ToInvestorID = ctx.Transfer.FromInvestorID

	result := Evaluate(ctx)

	require.False(t, result.Valid)
	assert.Contains(t, result.Violations, "Cannot transfer to yourself")
}

func TestEvaluate_NonPositiveUnits(t *testing.T) {
	for _, units := range []int64{0, -5} {
		ctx := newEvalContext()
		ctx.Transfer.Units = units

		result := Evaluate(ctx)

		require.False(t, result.Valid, "units=%d", units)
		assert.Contains(t, result.Violations, "Transfer units must be greater than zero")
	}
}

func TestEvaluate_InsufficientUnits(t *testing.T) {
	ctx := newEvalContext()
	ctx.FromHolding.Units = 50
	ctx.Transfer.Units = 100

	result := Evaluate(ctx)

	require.False(t, result.Valid)
	assert.Contains(t, result.Violations,
		"Insufficient units. Sender has 50, trying to transfer 100.")
}

func TestEvaluate_ExactHoldingBalancePasses(t *testing.T) {
	ctx := newEvalContext()
	ctx.FromHolding.Units = 100
	ctx.Transfer.Units = 100

	result := Evaluate(ctx)

	assert.True(t, result.Valid)
}

func TestEvaluate_MissingHolding(t *testing.T) {
	ctx := newEvalContext()
	ctx.FromHolding = nil

	result := Evaluate(ctx)

	// Both the balance check and the lockup check fail independently.
	require.False(t, result.Valid)
	assert.Contains(t, result.Violations, "Sender has no holding for this asset")
	assert.Contains(t, result.Violations, "No holding found for sender")
	assert.Equal(t, "5/7 checks passed", result.Summary)
}

func TestEvaluate_QualificationRequired(t *testing.T) {
	ctx := newEvalContext()
	ctx.ToInvestor.Accredited = false

	result := Evaluate(ctx)

	require.False(t, result.Valid)
	assert.Contains(t, result.Violations,
		`Recipient investor "Beta Vermoegen GmbH" is not accredited. Qualified investors only.`)
}

func TestEvaluate_QualificationNotRequired(t *testing.T) {
	ctx := newEvalContext()
	ctx.ToInvestor.Accredited = false
	ctx.Rules.QualificationRequired = false

	result := Evaluate(ctx)

	assert.True(t, result.Valid)
}

func TestEvaluate_LockupBoundary(t *testing.T) {
	t.Run("exactly the lockup period passes", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.FromHolding.AcquiredAt = ctx.Transfer.ExecutionDate.Add(-365 * 24 * time.Hour)

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
	})

	t.Run("one day short fails with remaining days", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.FromHolding.AcquiredAt = ctx.Transfer.ExecutionDate.Add(-364*24*time.Hour - 12*time.Hour)

		result := Evaluate(ctx)

		require.False(t, result.Valid)
		assert.Contains(t, result.Violations,
			"Lockup period violation. 1 day(s) remaining (365 day lockup).")
	})

	t.Run("same-day transfer reports full lockup remaining", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.FromHolding.AcquiredAt = ctx.Transfer.ExecutionDate.Add(-1 * time.Hour)

		result := Evaluate(ctx)

		require.False(t, result.Valid)
		assert.Contains(t, result.Violations,
			"Lockup period violation. 365 day(s) remaining (365 day lockup).")
	})

	t.Run("zero lockup skips the holding requirement", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.Rules.LockupDays = 0
		ctx.FromHolding.AcquiredAt = ctx.Transfer.ExecutionDate

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
	})
}

func TestEvaluate_JurisdictionWhitelist(t *testing.T) {
	t.Run("recipient outside whitelist", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.ToInvestor.Jurisdiction = "US"

		result := Evaluate(ctx)

		require.False(t, result.Valid)
		assert.Contains(t, result.Violations,
			`Recipient jurisdiction "US" not in whitelist: [LU, DE]`)
	})

	t.Run("empty whitelist is unrestricted", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.ToInvestor.Jurisdiction = "KY"
		ctx.Rules.JurisdictionWhitelist = nil

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
	})
}

func TestEvaluate_TransferWhitelist(t *testing.T) {
	t.Run("nil whitelist is unrestricted", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.Rules.TransferWhitelist = nil

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
	})

	t.Run("empty whitelist blocks every recipient", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.Rules.TransferWhitelist = []id.InvestorID{}

		result := Evaluate(ctx)

		require.False(t, result.Valid)
		assert.Contains(t, result.Violations,
			`Recipient investor "Beta Vermoegen GmbH" not in transfer whitelist.`)
	})

	t.Run("whitelisted recipient passes", func(t *testing.T) {
		ctx := newEvalContext()
		ctx.Rules.TransferWhitelist = []id.InvestorID{ctx.ToInvestor.ID}

		result := Evaluate(ctx)

		assert.True(t, result.Valid)
	})
}

func TestEvaluate_ViolationsMatchFailedChecks(t *testing.T) {
	ctx := newEvalContext()
	ctx.Transfer.Units = -1
	ctx.ToInvestor.Accredited = false

	result := Evaluate(ctx)

	require.False(t, result.Valid)
	var failed []string
	for _, check := range result.Checks {
		if !check.Passed {
			failed = append(failed, check.Message)
		}
	}
	assert.Equal(t, failed, result.Violations)
	assert.Equal(t, "5/7 checks passed", result.Summary)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	ctx := newEvalContext()
	ctx.ToInvestor.Jurisdiction = "US"
	ctx.CustomRules = []CompositeRule{{
		ID:       id.RuleID(uuid.New()),
		Name:     "EU investors only",
		Operator: OpAnd,
		Conditions: []Condition{
			{Field: FieldToJurisdiction, Operator: OpIn, Value: ListVal("LU", "DE", "FR")},
		},
		Enabled: true,
	}}

	first := Evaluate(ctx)
	second := Evaluate(ctx)

	assert.Equal(t, first, second)
}

func TestEvaluate_DoesNotMutateContext(t *testing.T) {
	ctx := newEvalContext()
	before := *ctx
	holdingBefore := *ctx.FromHolding

	Evaluate(ctx)

	assert.Equal(t, before.Transfer, ctx.Transfer)
	assert.Equal(t, before.Rules, ctx.Rules)
	assert.Equal(t, holdingBefore, *ctx.FromHolding)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "0/0 checks passed", Summary(0, 0))
	assert.Equal(t, "3/9 checks passed", Summary(3, 9))
}
