package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

type httpMetrics struct {
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	rateLimitHits  *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchdog",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "watchdog",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchdog",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"group"}),
	}
	m.requestTotal = registerVec(reg, m.requestTotal)
	m.requestLatency = registerVec(reg, m.requestLatency)
	m.rateLimitHits = registerVec(reg, m.rateLimitHits)
	return m
}

func registerVec[C prometheus.Collector](reg prometheus.Registerer, collector C) C {
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

func (m *httpMetrics) observe(method, route string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}

func (m *httpMetrics) rateLimited(group string) {
	m.rateLimitHits.With(prometheus.Labels{"group": group}).Inc()
}

func (r *Router) metricsHandler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
