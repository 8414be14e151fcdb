package rating

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeUpdated        = "updated"
	outcomeMissingProduct = "missing_product"
	outcomeError          = "error"
)

// Metrics counts recompute outcomes.
type Metrics struct {
	recomputes *prometheus.CounterVec
}

// NewMetrics creates and registers the rating collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rating_recompute_total",
			Help: "Product rating recomputations by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.recomputes)
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(outcome).Inc()
}
