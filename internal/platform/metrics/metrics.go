package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	DecisionsEvaluated  *prometheus.CounterVec
	RecordsSealed       prometheus.Counter
	ChainVerifications  *prometheus.CounterVec
	EvaluationDurationS prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DecisionsEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caelith_decisions_evaluated_total",
			Help: "Decisions evaluated, labeled by decision type and result",
		}, []string{"decision_type", "result"}),
		RecordsSealed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caelith_records_sealed_total",
			Help: "Decision records sealed into the hash chain",
		}),
		ChainVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caelith_chain_verifications_total",
			Help: "Chain verification runs, labeled by outcome",
		}, []string{"outcome"}),
		EvaluationDurationS: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "caelith_evaluation_duration_seconds",
			Help:    "Latency of full rule evaluations",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveDecision records one evaluated decision.
func (m *Metrics) ObserveDecision(decisionType, result string) {
	m.DecisionsEvaluated.WithLabelValues(decisionType, result).Inc()
}

// ObserveVerification records one chain verification outcome.
func (m *Metrics) ObserveVerification(valid bool) {
	outcome := "valid"
	if !valid {
		outcome = "broken"
	}
	m.ChainVerifications.WithLabelValues(outcome).Inc()
}
