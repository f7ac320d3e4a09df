package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the orchestrator updates on
// every rule run (§2 Orchestrator; SPEC_FULL.md §11 domain stack).
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	matchCount  *prometheus.HistogramVec
}

// NewMetrics registers the engine's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid polluting the default
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabsentry",
			Name:      "rule_runs_total",
			Help:      "Rule runs by rule id and result (ok|error|skipped).",
		}, []string{"rule_id", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tabsentry",
			Name:      "rule_run_duration_seconds",
			Help:      "Rule run wall-clock duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"rule_id"}),
		matchCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tabsentry",
			Name:      "rule_match_count",
			Help:      "Number of tabs matched per rule run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"rule_id"}),
	}
	reg.MustRegister(m.runsTotal, m.runDuration, m.matchCount)
	return m
}

func (m *Metrics) observe(ruleID string, result string, duration float64, matches int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(ruleID, result).Inc()
	m.runDuration.WithLabelValues(ruleID).Observe(duration)
	m.matchCount.WithLabelValues(ruleID).Observe(float64(matches))
}
