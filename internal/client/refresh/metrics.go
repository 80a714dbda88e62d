package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess   = "success"
	resultNoToken   = "no_refresh_token"
	resultFailed    = "failed"
	resultCoalesced = "coalesced"
	resultDiscarded = "discarded"
)

// Metrics counts refresh outcomes. A nil *Metrics records nothing.
type Metrics struct {
	RefreshTotal *prometheus.CounterVec
}

// NewMetrics registers the refresh counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RefreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiclient",
				Name:      "refresh_total",
				Help:      "Token refresh attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}
