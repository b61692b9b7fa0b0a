// Package decision orchestrates the evaluate -> record -> seal flow: it runs
// the rules engine over a context, derives the decision result, writes the
// immutable ledger record, and chains it immediately.
package decision

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/julianlaycock/caelith-sub002/internal/ledger/models"
	ledgersvc "github.com/julianlaycock/caelith-sub002/internal/ledger/service"
	"github.com/julianlaycock/caelith-sub002/internal/platform/metrics"
	"github.com/julianlaycock/caelith-sub002/internal/rules"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	dErrors "github.com/julianlaycock/caelith-sub002/pkg/domain-errors"
	"github.com/julianlaycock/caelith-sub002/pkg/requestcontext"
)

// Service wires the rules engine to the decision ledger.
type Service struct {
	writer    *ledgersvc.Writer
	integrity *ledgersvc.Integrity
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu      sync.Mutex
	tenants map[id.TenantID]*sync.Mutex
}

// tenantLock hands out one mutex per tenant. Write-then-seal runs under it
// as a single short-held exclusive section, so two concurrent decisions for
// the same tenant can never interleave between sequence assignment and
// sealing, and the chain is always extended in write order.
func (s *Service) tenantLock(tenantID id.TenantID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.tenants[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		s.tenants[tenantID] = lock
	}
	return lock
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(writer *ledgersvc.Writer, integrity *ledgersvc.Integrity, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		writer:    writer,
		integrity: integrity,
		logger:    logger,
		tenants:   make(map[id.TenantID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decision is the outcome of one recorded decision: the evaluation trace,
// the sealed ledger record, and its integrity hash.
type Decision struct {
	Validation rules.ValidationResult `json:"validation"`
	Record     *models.DecisionRecord `json:"record"`
	Hash       string                 `json:"integrity_hash"`
}

// inputSnapshot is the subset of the evaluation context captured verbatim
// into the record. Rule state lives in the rule version snapshot instead so
// the two halves of the decision are separately inspectable.
type inputSnapshot struct {
	Transfer     rules.Transfer `json:"transfer"`
	FromInvestor rules.Investor `json:"from_investor"`
	ToInvestor   rules.Investor `json:"to_investor"`
	FromHolding  *rules.Holding `json:"from_holding"`
}

// ruleSnapshot freezes the exact rule state evaluated against. Never a live
// reference: the writer serializes it at decision time.
type ruleSnapshot struct {
	Rules       rules.RuleSet         `json:"rules"`
	CustomRules []rules.CompositeRule `json:"custom_rules"`
}

// ValidateTransfer evaluates a proposed transfer and seals the decision into
// the tenant's ledger. When simulate is true the result is recorded as
// "simulated" regardless of the verdict, so dry runs leave an audit trail
// without approving anything.
//
// Composite rules are structurally validated before evaluation; a malformed
// rule (NOT with the wrong arity, unknown field) is an authoring error
// surfaced to the caller, not silently coerced.
func (s *Service) ValidateTransfer(ctx context.Context, tenantID id.TenantID, evalCtx *rules.EvaluationContext, simulate bool) (*Decision, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	for _, rule := range evalCtx.CustomRules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	validation := rules.Evaluate(evalCtx)
	if s.metrics != nil {
		s.metrics.EvaluationDurationS.Observe(time.Since(start).Seconds())
	}

	result := models.ResultApproved
	if !validation.Valid {
		result = models.ResultRejected
	}
	if simulate {
		result = models.ResultSimulated
	}

	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	assetID := evalCtx.Transfer.AssetID
	record, err := s.writer.Write(ctx, ledgersvc.WriteParams{
		DecisionType: models.DecisionTransferValidation,
		TenantID:     tenantID,
		SubjectID:    evalCtx.Transfer.FromInvestorID.String(),
		AssetID:      &assetID,
		InputSnapshot: inputSnapshot{
			Transfer:     evalCtx.Transfer,
			FromInvestor: evalCtx.FromInvestor,
			ToInvestor:   evalCtx.ToInvestor,
			FromHolding:  evalCtx.FromHolding,
		},
		RuleSnapshot:  ruleSnapshot{Rules: evalCtx.Rules, CustomRules: evalCtx.CustomRules},
		Result:        result,
		ResultDetails: validation,
		DecidedBy:     requestcontext.ActorID(ctx),
	})
	if err != nil {
		return nil, err
	}

	return s.seal(ctx, record, validation, models.DecisionTransferValidation, result)
}

// RecordDecision seals a non-transfer decision (onboarding step or
// eligibility check). The caller supplies its own checks; the result derives
// from them: all passed means approved. This keeps the ledger decoupled from
// the transfer engine, per the writer's contract.
func (s *Service) RecordDecision(ctx context.Context, decisionType models.DecisionType, tenantID id.TenantID, subjectID string, input, ruleState any, checks []rules.CheckResult) (*Decision, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}

	violations := make([]string, 0)
	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		} else {
			violations = append(violations, c.Message)
		}
	}
	result := models.ResultApproved
	if len(violations) > 0 {
		result = models.ResultRejected
	}
	validation := rules.ValidationResult{
		Valid:      len(violations) == 0,
		Violations: violations,
		Checks:     checks,
		Summary:    rules.Summary(passed, len(checks)),
	}

	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.writer.Write(ctx, ledgersvc.WriteParams{
		DecisionType:  decisionType,
		TenantID:      tenantID,
		SubjectID:     subjectID,
		InputSnapshot: input,
		RuleSnapshot:  ruleState,
		Result:        result,
		ResultDetails: validation,
		DecidedBy:     requestcontext.ActorID(ctx),
	})
	if err != nil {
		return nil, err
	}

	return s.seal(ctx, record, validation, decisionType, result)
}

func (s *Service) seal(ctx context.Context, record *models.DecisionRecord, validation rules.ValidationResult, decisionType models.DecisionType, result models.DecisionResult) (*Decision, error) {
	hash, err := s.integrity.Seal(ctx, record.TenantID, record.ID)
	if err != nil {
		return nil, err
	}
	// Re-read so the returned record carries both chain fields as persisted.
	sealed, err := s.integrity.GetRecord(ctx, record.TenantID, record.ID)
	if err != nil {
		return nil, err
	}
	record = sealed

	if s.metrics != nil {
		s.metrics.ObserveDecision(string(decisionType), string(result))
		s.metrics.RecordsSealed.Inc()
	}
	s.logger.InfoContext(ctx, "decision finalized",
		"tenant_id", record.TenantID.String(),
		"record_id", record.ID.String(),
		"decision_type", string(decisionType),
		"result", string(result),
		"valid", validation.Valid,
	)
	return &Decision{Validation: validation, Record: record, Hash: hash}, nil
}
