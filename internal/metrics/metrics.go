package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes the engine's operational counters. A nil *Collector is
// safe to call, so wiring it stays optional in tests.
type Collector struct {
	registry *prometheus.Registry

	evaluationsTotal   prometheus.Counter
	evaluationErrors   prometheus.Counter
	evaluationDuration prometheus.Histogram
	violationsTotal    *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	accountsByRisk     *prometheus.GaugeVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		evaluationsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "compliance_evaluations_total",
			Help: "Total account evaluations run",
		}),
		evaluationErrors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "compliance_evaluation_errors_total",
			Help: "Evaluations that ended in an evaluation error",
		}),
		evaluationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "compliance_evaluation_duration_seconds",
			Help:    "Time spent evaluating a single account",
			Buckets: prometheus.DefBuckets,
		}),
		violationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_violations_total",
			Help: "Violations recorded, by type and fatality",
		}, []string{"type", "fatal"}),
		transitionsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_phase_transitions_total",
			Help: "Phase transitions recorded, by target phase",
		}, []string{"to_phase"}),
		accountsByRisk: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "compliance_accounts_by_risk_level",
			Help: "Accounts at each advisory risk level as of the last sweep",
		}, []string{"level"}),
	}
}

func (c *Collector) ObserveEvaluation(d time.Duration, failed bool) {
	if c == nil {
		return
	}
	c.evaluationsTotal.Inc()
	if failed {
		c.evaluationErrors.Inc()
	}
	c.evaluationDuration.Observe(d.Seconds())
}

func (c *Collector) RecordViolation(vtype string, fatal bool) {
	if c == nil {
		return
	}
	label := "false"
	if fatal {
		label = "true"
	}
	c.violationsTotal.WithLabelValues(vtype, label).Inc()
}

func (c *Collector) RecordTransition(toPhase string) {
	if c == nil {
		return
	}
	c.transitionsTotal.WithLabelValues(toPhase).Inc()
}

func (c *Collector) SetRiskLevelCount(level string, n int) {
	if c == nil {
		return
	}
	c.accountsByRisk.WithLabelValues(level).Set(float64(n))
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
