package payment

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts engine outcomes. A nil *Metrics records nothing.
type Metrics struct {
	persisted *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	cache     *prometheus.CounterVec
}

// NewMetrics registers the engine counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		persisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fee_engine",
			Name:      "payments_persisted_total",
			Help:      "Payments written, by contract schedule.",
		}, []string{"schedule"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fee_engine",
			Name:      "payments_rejected_total",
			Help:      "Persist attempts rejected, by error code.",
		}, []string{"code"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fee_engine",
			Name:      "contract_cache_lookups_total",
			Help:      "Active-contract lookups, by cache result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.persisted, m.rejected, m.cache)
	return m
}

func (m *Metrics) observePersisted(s string) {
	if m != nil {
		m.persisted.WithLabelValues(s).Inc()
	}
}

func (m *Metrics) observeRejected(codes []Code) {
	if m == nil {
		return
	}
	for _, c := range codes {
		m.rejected.WithLabelValues(string(c)).Inc()
	}
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cache.WithLabelValues("hit").Inc()
	} else {
		m.cache.WithLabelValues("miss").Inc()
	}
}
