package rules

import "fmt"

// Evaluate runs every built-in check in fixed order, then every composite
// rule in input order, and aggregates the trace. Pure and deterministic:
// identical context and rules produce byte-identical results. Never returns
// an error; violations are data.
func Evaluate(ctx *EvaluationContext) ValidationResult {
	checks := make([]CheckResult, 0, len(builtinChecks)+len(ctx.CustomRules))
	violations := make([]string, 0)

	for _, check := range builtinChecks {
		result := check.run(ctx)
		checks = append(checks, result)
		if !result.Passed {
			violations = append(violations, result.Message)
		}
	}

	for _, rule := range ctx.CustomRules {
		result := evaluateComposite(rule, ctx)
		checks = append(checks, result)
		if !result.Passed {
			violations = append(violations, result.Message)
		}
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	return ValidationResult{
		Valid:      len(violations) == 0,
		Violations: violations,
		Checks:     checks,
		Summary:    Summary(passed, len(checks)),
	}
}

// Summary renders the trace summary line. Shared with callers that assemble
// their own check lists (onboarding, eligibility) so every decision reads
// the same in reports.
func Summary(passed, total int) string {
	return fmt.Sprintf("%d/%d checks passed", passed, total)
}

// evaluateComposite produces the trace entry for one composite rule. A
// disabled rule always passes with a skip message and contributes no
// violation, but still appears in the trace for auditability.
func evaluateComposite(rule CompositeRule, ctx *EvaluationContext) CheckResult {
	if !rule.Enabled {
		return CheckResult{Rule: rule.Name, Passed: true, Message: "skipped (disabled)"}
	}
	if rule.passes(ctx) {
		return CheckResult{Rule: rule.Name, Passed: true, Message: rule.Description}
	}
	return CheckResult{
		Rule:   rule.Name,
		Passed: false,
		// Message shape is part of the audit contract; downstream reports
		// match on "<name>: failed".
		Message: fmt.Sprintf("%s: failed — %s", rule.Name, rule.Description),
	}
}
