package metrics

import "github.com/prometheus/client_golang/prometheus"

// StandbyMetrics exposes counters/histograms for standby matching and redemption.
type StandbyMetrics struct {
	outcomesTotal    *prometheus.CounterVec
	passDuration     prometheus.Histogram
	redemptionsTotal *prometheus.CounterVec
}

func NewStandbyMetrics(reg prometheus.Registerer) *StandbyMetrics {
	m := &StandbyMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "standby",
			Subsystem: "matcher",
			Name:      "outcomes_total",
			Help:      "Standby preferences evaluated per slot-open pass, by outcome",
		}, []string{"kind", "reason"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "standby",
			Subsystem: "matcher",
			Name:      "pass_seconds",
			Help:      "Duration of a full matching pass for one opened slot",
			Buckets:   prometheus.DefBuckets,
		}),
		redemptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "standby",
			Name:      "redemptions_total",
			Help:      "Confirmation token redemption attempts, by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomesTotal, m.passDuration, m.redemptionsTotal)
	return m
}

func (m *StandbyMetrics) ObserveOutcome(kind, reason string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(kind, reason).Inc()
}

func (m *StandbyMetrics) ObservePass(seconds float64) {
	if m == nil {
		return
	}
	m.passDuration.Observe(seconds)
}

func (m *StandbyMetrics) ObserveRedemption(result string) {
	if m == nil {
		return
	}
	m.redemptionsTotal.WithLabelValues(result).Inc()
}
