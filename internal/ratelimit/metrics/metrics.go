package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts rate limiter outcomes. Methods are nil-safe.
type Metrics struct {
	Rejections    prometheus.Counter
	RejectedUnits prometheus.Counter
	StoreErrors   prometheus.Counter
	Degraded      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Rejections: f.NewCounter(prometheus.CounterOpts{
			Name: "numintel_ratelimit_rejections_total",
			Help: "Requests rejected with 429",
		}),
		RejectedUnits: f.NewCounter(prometheus.CounterOpts{
			Name: "numintel_ratelimit_rejected_numbers_total",
			Help: "Numbers carried by rejected requests",
		}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "numintel_ratelimit_store_errors_total",
			Help: "Rate limit checks that failed against the bucket store",
		}),
		Degraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "numintel_ratelimit_degraded",
			Help: "1 while checks run against the in-process fallback store",
		}),
	}
}

func (m *Metrics) IncrementRejections(cost int) {
	if m == nil {
		return
	}
	m.Rejections.Inc()
	m.RejectedUnits.Add(float64(cost))
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}
