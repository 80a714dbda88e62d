package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess      = "success"
	outcomeUnauthorized = "unauthorized"
	outcomeAPIError     = "api_error"
	outcomeTimeout      = "timeout"
	outcomeCanceled     = "canceled"
	outcomeTransport    = "transport"
	outcomeDecode       = "decode"
)

// Metrics instruments the pipeline. A nil *Metrics records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RetriesTotal    prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiclient",
				Name:      "requests_total",
				Help:      "Logical requests by method and final outcome",
			},
			[]string{"method", "outcome"},
		),
		RetriesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "apiclient",
				Name:      "retries_total",
				Help:      "Requests re-sent after a 401",
			},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "apiclient",
				Name:      "request_duration_seconds",
				Help:      "Logical request duration including any refresh and retry",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) observe(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func outcomeOf(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return outcomeTransport
	}
	switch e.Kind {
	case ErrUnauthorized:
		return outcomeUnauthorized
	case ErrAPI:
		return outcomeAPIError
	case ErrTimeout:
		return outcomeTimeout
	case ErrCanceled:
		return outcomeCanceled
	case ErrDecode:
		return outcomeDecode
	default:
		return outcomeTransport
	}
}
