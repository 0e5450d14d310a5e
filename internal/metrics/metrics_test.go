package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Ingested("logs", 3)
	m.Rejected("logs")
	m.Evaluated("ok")
	m.Transitioned("fired")
	m.Tick("monitor", time.Second)
	m.Probed(false, time.Second)
	m.TailOpened()
	m.TailClosed()
	m.TailQueued("web")
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.Ingested("metrics", 2)
	second.Ingested("metrics", 3)
	require.Equal(t, 5.0, testutil.ToFloat64(first.ingestItems.WithLabelValues("metrics")))

	second.Probed(false, 10*time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(first.probes.WithLabelValues("failed")))

	first.TailOpened()
	first.TailOpened()
	second.TailClosed()
	require.Equal(t, 1.0, testutil.ToFloat64(first.tailSubscribers))

	second.TailQueued("web")
	require.Equal(t, 1.0, testutil.ToFloat64(first.tailQueued.WithLabelValues("web")))
}
