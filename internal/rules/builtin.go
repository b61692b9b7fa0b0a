package rules

import (
	"fmt"
	"strings"
)

// builtinCheck is one structural check. It returns the CheckResult that goes
// into the trace; a failed result's message doubles as the violation text.
type builtinCheck struct {
	name string
	run  func(ctx *EvaluationContext) CheckResult
}

func pass(name, message string) CheckResult {
	return CheckResult{Rule: name, Passed: true, Message: message}
}

func fail(name, message string) CheckResult {
	return CheckResult{Rule: name, Passed: false, Message: message}
}

const (
	checkSelfTransfer          = "self_transfer"
	checkPositiveUnits         = "positive_units"
	checkSufficientUnits       = "sufficient_units"
	checkQualification         = "qualification"
	checkLockupPeriod          = "lockup_period"
	checkJurisdictionWhitelist = "jurisdiction_whitelist"
	checkTransferWhitelist     = "transfer_whitelist"
)

const millisPerDay = 24 * 60 * 60 * 1000

// builtinChecks run in this fixed order for every evaluation. The order is
// part of the determinism contract: the trace feeds the ledger hash.
var builtinChecks = []builtinCheck{
	{checkSelfTransfer, func(ctx *EvaluationContext) CheckResult {
		if ctx.Transfer.FromInvestorID == ctx.Transfer.ToInvestorID {
			return fail(checkSelfTransfer, "Cannot transfer to yourself")
		}
		return pass(checkSelfTransfer, "Sender and recipient are distinct")
	}},
	{checkPositiveUnits, func(ctx *EvaluationContext) CheckResult {
		if ctx.Transfer.Units <= 0 {
			return fail(checkPositiveUnits, "Transfer units must be greater than zero")
		}
		return pass(checkPositiveUnits, fmt.Sprintf("Transfer of %d unit(s) is positive", ctx.Transfer.Units))
	}},
	{checkSufficientUnits, func(ctx *EvaluationContext) CheckResult {
		if ctx.FromHolding == nil {
			return fail(checkSufficientUnits, "Sender has no holding for this asset")
		}
		if ctx.FromHolding.Units < ctx.Transfer.Units {
			return fail(checkSufficientUnits, fmt.Sprintf(
				"Insufficient units. Sender has %d, trying to transfer %d.",
				ctx.FromHolding.Units, ctx.Transfer.Units))
		}
		return pass(checkSufficientUnits, fmt.Sprintf(
			"Sender holds %d unit(s), transferring %d", ctx.FromHolding.Units, ctx.Transfer.Units))
	}},
	{checkQualification, func(ctx *EvaluationContext) CheckResult {
		if !ctx.Rules.QualificationRequired {
			return pass(checkQualification, "Qualification not required for this asset")
		}
		if !ctx.ToInvestor.Accredited {
			return fail(checkQualification, fmt.Sprintf(
				"Recipient investor %q is not accredited. Qualified investors only.", ctx.ToInvestor.Name))
		}
		return pass(checkQualification, fmt.Sprintf("Recipient investor %q is accredited", ctx.ToInvestor.Name))
	}},
	{checkLockupPeriod, func(ctx *EvaluationContext) CheckResult {
		if ctx.Rules.LockupDays == 0 {
			return pass(checkLockupPeriod, "No lockup configured")
		}
		if ctx.FromHolding == nil {
			return fail(checkLockupPeriod, "No holding found for sender")
		}
		// Whole elapsed days as floor(ms delta / ms per day). The exact
		// boundary (elapsed == lockup) passes; one day short fails.
		deltaMillis := ctx.Transfer.ExecutionDate.UnixMilli() - ctx.FromHolding.AcquiredAt.UnixMilli()
		daysSinceAcquisition := floorDiv(deltaMillis, millisPerDay)
		if daysSinceAcquisition < int64(ctx.Rules.LockupDays) {
			remaining := int64(ctx.Rules.LockupDays) - daysSinceAcquisition
			return fail(checkLockupPeriod, fmt.Sprintf(
				"Lockup period violation. %d day(s) remaining (%d day lockup).",
				remaining, ctx.Rules.LockupDays))
		}
		return pass(checkLockupPeriod, fmt.Sprintf(
			"Lockup satisfied: %d day(s) since acquisition (%d day lockup)",
			daysSinceAcquisition, ctx.Rules.LockupDays))
	}},
	{checkJurisdictionWhitelist, func(ctx *EvaluationContext) CheckResult {
		if len(ctx.Rules.JurisdictionWhitelist) == 0 {
			return pass(checkJurisdictionWhitelist, "No jurisdiction restrictions")
		}
		for _, j := range ctx.Rules.JurisdictionWhitelist {
			if j == ctx.ToInvestor.Jurisdiction {
				return pass(checkJurisdictionWhitelist, fmt.Sprintf(
					"Recipient jurisdiction %q is whitelisted", ctx.ToInvestor.Jurisdiction))
			}
		}
		return fail(checkJurisdictionWhitelist, fmt.Sprintf(
			"Recipient jurisdiction %q not in whitelist: [%s]",
			ctx.ToInvestor.Jurisdiction, strings.Join(ctx.Rules.JurisdictionWhitelist, ", ")))
	}},
	{checkTransferWhitelist, func(ctx *EvaluationContext) CheckResult {
		if ctx.Rules.TransferWhitelist == nil {
			return pass(checkTransferWhitelist, "Transfers unrestricted")
		}
		for _, allowed := range ctx.Rules.TransferWhitelist {
			if allowed == ctx.ToInvestor.ID {
				return pass(checkTransferWhitelist, fmt.Sprintf(
					"Recipient investor %q is whitelisted", ctx.ToInvestor.Name))
			}
		}
		return fail(checkTransferWhitelist, fmt.Sprintf(
			"Recipient investor %q not in transfer whitelist.", ctx.ToInvestor.Name))
	}},
}

// floorDiv divides rounding toward negative infinity, so a same-day transfer
// with the clock ahead of acquisition counts as day zero and an execution
// date before acquisition counts negative.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
