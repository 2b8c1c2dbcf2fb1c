package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"numintel/internal/classify"
)

var latencyBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the analysis module.
// All methods are safe on a nil receiver.
type Metrics struct {
	Classifications  *prometheus.CounterVec
	FraudFlags       *prometheus.CounterVec
	ClassifyDuration prometheus.Histogram
	BatchSize        prometheus.Histogram
	StoreDuration    *prometheus.HistogramVec
	EventsPublished  *prometheus.CounterVec
}

// New registers the analysis metrics with reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "numintel_classifications_total",
			Help: "Numbers classified, by verdict",
		}, []string{"id_type", "crypto_strength", "origin"}),
		FraudFlags: f.NewCounterVec(prometheus.CounterOpts{
			Name: "numintel_fraud_flags_total",
			Help: "Fraud flags raised, by flag",
		}, []string{"flag"}),
		ClassifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "numintel_classify_duration_seconds",
			Help:    "Duration of a single classification",
			Buckets: latencyBuckets,
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "numintel_batch_size",
			Help:    "Numbers per batch request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		}),
		StoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "numintel_store_duration_seconds",
			Help:    "Duration of analysis store operations",
			Buckets: latencyBuckets,
		}, []string{"op"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "numintel_events_published_total",
			Help: "Analysis events handed to the publisher, by result",
		}, []string{"result"}),
	}
}

// ObserveVerdict counts one classification and each flag it raised.
func (m *Metrics) ObserveVerdict(v classify.Verdict) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(string(v.IDType), string(v.CryptoStrength), string(v.Origin)).Inc()
	for _, f := range v.FraudFlags {
		if f == classify.FlagNone {
			continue
		}
		m.FraudFlags.WithLabelValues(string(f)).Inc()
	}
}

// ObserveClassify records the duration of one classification.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveClassify(start time.Time) {
	if m == nil {
		return
	}
	m.ClassifyDuration.Observe(time.Since(start).Seconds())
}

// ObserveBatch records the size of a batch request.
func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
}

// ObserveStore records the duration of a store call.
func (m *Metrics) ObserveStore(op string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// IncEvent counts n events with the given result ("ok", "error").
func (m *Metrics) IncEvent(result string, n int) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(result).Add(float64(n))
}
