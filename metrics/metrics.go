// Package metrics exposes Prometheus metrics for validation runs
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/rules"
)

// Metrics provides observability for the validation engine and reference data population.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Runs by outcome: succeeded, failed, cancelled
	Runs *prometheus.CounterVec

	// Overall run latency
	RunDuration prometheus.Histogram

	// Learners evaluated across all runs
	RecordsEvaluated prometheus.Counter

	// Validation errors reported by rule and severity
	ValidationErrors *prometheus.CounterVec

	// Isolated rule faults by rule
	RuleFaults *prometheus.CounterVec

	// Reference data retrieval latencies by source and result
	RetrievalLatency *prometheus.HistogramVec
}

var (
	_ rules.Observer           = (*Metrics)(nil)
	_ external.LatencyObserver = (*Metrics)(nil)
)

// New creates a Metrics instance registered on registry; a nil registry gets a fresh one
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ilrv_runs_total",
			Help: "Total validation runs by outcome",
		}, []string{"outcome"}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ilrv_run_duration_seconds",
			Help:    "Duration of validation runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),

		RecordsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ilrv_records_evaluated_total",
			Help: "Total learners evaluated against the full catalog",
		}),

		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ilrv_validation_errors_total",
			Help: "Total validation errors reported by rule and severity",
		}, []string{"rule", "severity"}),

		RuleFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ilrv_rule_faults_total",
			Help: "Total isolated rule faults by rule",
		}, []string{"rule"}),

		RetrievalLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ilrv_reference_retrieval_duration_seconds",
			Help:    "Duration of reference data retrievals by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		}, []string{"source", "result"}),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// ObserveRecordEvaluated counts one learner evaluated
func (m *Metrics) ObserveRecordEvaluated() {
	if m != nil {
		m.RecordsEvaluated.Inc()
	}
}

// ObserveRuleFault counts one isolated fault of ruleName
func (m *Metrics) ObserveRuleFault(ruleName string) {
	if m != nil {
		m.RuleFaults.WithLabelValues(ruleName).Inc()
	}
}

// ObserveRun records a finished run and the errors it reported
func (m *Metrics) ObserveRun(outcome string, d time.Duration, results []rules.ValidationError) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
	for _, r := range results {
		m.ValidationErrors.WithLabelValues(r.RuleName, r.Severity.String()).Inc()
	}
}

// ObserveRetrievalLatency records the duration of fetching one reference data source
func (m *Metrics) ObserveRetrievalLatency(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RetrievalLatency.WithLabelValues(source, result).Observe(d.Seconds())
}
