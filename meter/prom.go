package meter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ineyio/budgetguard"
)

// PromMeter exports budget metrics to Prometheus.
//
// Metrics:
//   - budgetguard_provider_remaining_budget: remaining budget in USD by provider
//   - budgetguard_provider_spend_total: recorded spend in USD by provider
//   - budgetguard_sync_cycles_total: reconciliation cycles by result
type PromMeter struct {
	remaining *prometheus.GaugeVec
	spend     *prometheus.CounterVec
	cycles    *prometheus.CounterVec
}

var _ budgetguard.Meter = (*PromMeter)(nil)

// NewPromMeter creates and registers budget metrics with the provided
// registerer. Pass prometheus.DefaultRegisterer to use the default
// registry.
func NewPromMeter(reg prometheus.Registerer) *PromMeter {
	m := &PromMeter{
		remaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "budgetguard",
				Name:      "provider_remaining_budget",
				Help:      "Remaining budget in USD by provider",
			},
			[]string{"provider"},
		),
		spend: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "budgetguard",
				Name:      "provider_spend_total",
				Help:      "Recorded spend in USD by provider",
			},
			[]string{"provider"},
		),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "budgetguard",
				Name:      "sync_cycles_total",
				Help:      "Reconciliation cycles by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.remaining, m.spend, m.cycles)
	return m
}

func (m *PromMeter) ObserveRemainingBudget(provider string, remaining float64) {
	m.remaining.WithLabelValues(provider).Set(remaining)
}

func (m *PromMeter) ObserveSpend(provider string, cost float64) {
	m.spend.WithLabelValues(provider).Add(cost)
}

func (m *PromMeter) ObserveSync(pushed, pulled int, err error) {
	if err != nil {
		m.cycles.WithLabelValues("error").Inc()
		return
	}
	m.cycles.WithLabelValues("ok").Inc()
}
