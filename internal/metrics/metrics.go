// Package metrics holds the Prometheus collectors of the background loops,
// ingestion and live tail. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "watchdog"

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics groups the domain collectors.
type Metrics struct {
	ingestItems     *prometheus.CounterVec
	ingestRejected  *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	tickDuration    *prometheus.HistogramVec
	probes          *prometheus.CounterVec
	probeLatency    prometheus.Histogram
	tailSubscribers prometheus.Gauge
	tailQueued      *prometheus.CounterVec
}

// New builds the collectors and registers them with reg. Collectors already
// registered by an earlier call are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingestItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Telemetry items persisted by kind",
		}, []string{"kind"}),
		ingestRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rejected_batches_total",
			Help:      "Ingestion batches rejected by validation",
		}, []string{"kind"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "evaluations_total",
			Help:      "Monitor evaluations by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "alert_transitions_total",
			Help:      "Alert state transitions written by the evaluator",
		}, []string{"transition"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of one background loop tick",
			Buckets:   durationBuckets,
		}, []string{"loop"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "synthetics",
			Name:      "probes_total",
			Help:      "Synthetic probes by outcome",
		}, []string{"outcome"}),
		probeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "synthetics",
			Name:      "probe_latency_seconds",
			Help:      "Latency of synthetic probes",
			Buckets:   durationBuckets,
		}),
		tailSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "livetail",
			Name:      "subscribers",
			Help:      "Open live tail streams",
		}),
		tailQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "livetail",
			Name:      "queued_total",
			Help:      "Log payloads queued for live tail subscribers",
		}, []string{"service"}),
	}
	if reg == nil {
		return m
	}

	m.ingestItems = register(reg, m.ingestItems)
	m.ingestRejected = register(reg, m.ingestRejected)
	m.evaluations = register(reg, m.evaluations)
	m.transitions = register(reg, m.transitions)
	m.tickDuration = register(reg, m.tickDuration)
	m.probes = register(reg, m.probes)
	m.probeLatency = register(reg, m.probeLatency)
	m.tailSubscribers = register(reg, m.tailSubscribers)
	m.tailQueued = register(reg, m.tailQueued)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) C {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return collector
}

// Ingested counts n persisted items of kind.
func (m *Metrics) Ingested(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestItems.WithLabelValues(kind).Add(float64(n))
}

// Rejected counts a rejected batch of kind.
func (m *Metrics) Rejected(kind string) {
	if m == nil {
		return
	}
	m.ingestRejected.WithLabelValues(kind).Inc()
}

// Evaluated counts one monitor evaluation.
func (m *Metrics) Evaluated(outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(outcome).Inc()
}

// Transitioned counts one written alert transition.
func (m *Metrics) Transitioned(transition string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition).Inc()
}

// Tick observes the duration of a loop tick.
func (m *Metrics) Tick(loop string, d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.WithLabelValues(loop).Observe(d.Seconds())
}

// Probed counts a probe and observes its latency.
func (m *Metrics) Probed(ok bool, latency time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.probes.WithLabelValues(outcome).Inc()
	m.probeLatency.Observe(latency.Seconds())
}

// TailOpened and TailClosed track open live tail streams.
func (m *Metrics) TailOpened() {
	if m == nil {
		return
	}
	m.tailSubscribers.Inc()
}

func (m *Metrics) TailClosed() {
	if m == nil {
		return
	}
	m.tailSubscribers.Dec()
}

// TailQueued counts a payload queued for one subscriber of service.
func (m *Metrics) TailQueued(service string) {
	if m == nil {
		return
	}
	m.tailQueued.WithLabelValues(service).Inc()
}
