package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// metricsSet carries optional self-metrics. All methods tolerate a nil
// receiver so instrumentation never affects control flow.
type metricsSet struct {
	submitted       prometheus.Counter
	delivered       *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	deliveryLatency prometheus.Histogram
}

func newMetricsSet() *metricsSet {
	m := &metricsSet{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yelix",
			Subsystem: "sdk",
			Name:      "events_submitted_total",
			Help:      "Count of events handed to Submit",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yelix",
			Subsystem: "sdk",
			Name:      "events_resolved_total",
			Help:      "Count of events that reached a final outcome",
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "yelix",
			Subsystem: "sdk",
			Name:      "queue_depth",
			Help:      "Events waiting for initialization to complete",
		}),
		deliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "yelix",
			Subsystem: "sdk",
			Name:      "delivery_duration_seconds",
			Help:      "Latency distribution of collector delivery calls",
			Buckets:   latencyBuckets,
		}),
	}

	if existing, ok := register(m.submitted); ok {
		if v, ok := existing.(prometheus.Counter); ok {
			m.submitted = v
		}
	}
	if existing, ok := register(m.delivered); ok {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.delivered = v
		}
	}
	if existing, ok := register(m.queueDepth); ok {
		if v, ok := existing.(prometheus.Gauge); ok {
			m.queueDepth = v
		}
	}
	if existing, ok := register(m.deliveryLatency); ok {
		if v, ok := existing.(prometheus.Histogram); ok {
			m.deliveryLatency = v
		}
	}
	return m
}

// register attempts registration and reports the already-registered collector
// when a previous client instance claimed the name.
func register(c prometheus.Collector) (prometheus.Collector, bool) {
	err := prometheus.Register(c)
	if err == nil {
		return nil, false
	}
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return are.ExistingCollector, true
	}
	return nil, false
}

func (m *metricsSet) recordSubmitted(queueDepth int) {
	if m == nil {
		return
	}
	m.submitted.Inc()
	m.queueDepth.Set(float64(queueDepth))
}

func (m *metricsSet) recordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *metricsSet) recordOutcome(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if err != nil {
		outcome = "failed"
	}
	m.delivered.With(prometheus.Labels{"outcome": outcome}).Inc()
	m.deliveryLatency.Observe(elapsed.Seconds())
}
