// Package metrics exposes pipeline counters through Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "logship"

// Flush results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds every collector the pipeline updates. All methods are safe on
// a nil *Metrics so components can run without instrumentation.
type Metrics struct {
	entriesWritten *prometheus.CounterVec
	writeFailures  prometheus.Counter
	rotations      prometheus.Counter
	recoveries     prometheus.Counter
	triggers       prometheus.Counter
	forwardedBytes prometheus.Counter
	flushes        *prometheus.CounterVec
	markedSent     prometheus.Counter
	bufferedBytes  prometheus.Gauge
	flushDuration  prometheus.Histogram
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests and embedded users without a
// metrics endpoint want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		entriesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_written_total",
			Help:      "Entries inserted into the local store, by severity name.",
		}, []string{"severity"}),
		writeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_write_failures_total",
			Help:      "Entries that could not be inserted.",
		}),
		rotations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_rotations_total",
			Help:      "Times the store reached its size limit and was recreated.",
		}),
		recoveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_recoveries_total",
			Help:      "Times an unreadable store was deleted and recreated.",
		}),
		triggers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_triggers_total",
			Help:      "Logical change signals raised by the store watcher.",
		}),
		forwardedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_bytes_total",
			Help:      "Formatted bytes forwarded from the watcher to the delivery buffer.",
		}),
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Delivery attempts, by result.",
		}, []string{"result"}),
		markedSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_marked_sent_total",
			Help:      "Entries flagged as sent after a successful delivery.",
		}),
		bufferedBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffered_bytes",
			Help:      "Bytes waiting in the delivery buffer.",
		}),
		flushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent sending one batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) EntryWritten(severity string) {
	if m == nil {
		return
	}
	m.entriesWritten.WithLabelValues(severity).Inc()
}

func (m *Metrics) WriteFailed() {
	if m == nil {
		return
	}
	m.writeFailures.Inc()
}

func (m *Metrics) Rotated() {
	if m == nil {
		return
	}
	m.rotations.Inc()
}

func (m *Metrics) Recovered() {
	if m == nil {
		return
	}
	m.recoveries.Inc()
}

func (m *Metrics) Triggered(forwarded int) {
	if m == nil {
		return
	}
	m.triggers.Inc()
	m.forwardedBytes.Add(float64(forwarded))
}

// Flushed records one delivery attempt.
func (m *Metrics) Flushed(result string, seconds float64, marked int64) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(result).Inc()
	m.flushDuration.Observe(seconds)
	if marked > 0 {
		m.markedSent.Add(float64(marked))
	}
}

func (m *Metrics) Buffered(n int) {
	if m == nil {
		return
	}
	m.bufferedBytes.Set(float64(n))
}
