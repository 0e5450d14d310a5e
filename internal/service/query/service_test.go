package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository/memory"
)

func seed(t *testing.T, now time.Time) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New("prod")

	require.NoError(t, store.InsertMetricPoints(ctx, []domain.MetricPoint{
		{Name: "cpu", TS: now.Add(-3 * time.Minute), Value: 0.2, Service: "web", Tags: map[string]string{"host": "a"}},
		{Name: "cpu", TS: now.Add(-2 * time.Minute), Value: 0.6, Service: "web", Tags: map[string]string{"host": "b"}},
		{Name: "cpu", TS: now.Add(-time.Minute), Value: 0.4, Service: "api", Tags: map[string]string{"host": "a"}},
	}))
	_, err := store.InsertLogEvents(ctx, []domain.LogEvent{
		{TS: now.Add(-2 * time.Minute), Service: "web", Level: "info", Message: "Request served"},
		{TS: now.Add(-time.Minute), Service: "web", Level: "error", Message: "request FAILED"},
		{TS: now, Service: "api", Level: "info", Message: "boot"},
	})
	require.NoError(t, err)
	require.NoError(t, store.InsertSpans(ctx, []domain.Span{
		{TraceID: "t1", SpanID: "b", Service: "web", Name: "db", StartTS: now.Add(-time.Second), DurationMS: 40, Status: "ok"},
		{TraceID: "t1", SpanID: "a", Service: "web", Name: "handler", StartTS: now.Add(-2 * time.Second), DurationMS: 120, Status: "error"},
		{TraceID: "t2", SpanID: "c", Service: "api", Name: "handler", StartTS: now, DurationMS: 5, Status: "ok"},
	}))
	return store
}

func TestTimeseriesRollups(t *testing.T) {
	now := time.Now().UTC()
	svc := New(seed(t, now))
	ctx := context.Background()

	series, err := svc.Timeseries(ctx, TimeseriesRequest{Name: "cpu", Service: "web"})
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	require.InDelta(t, 0.4, series.Rollups["avg"], 1e-9)
	require.Equal(t, 0.2, series.Rollups["min"])
	require.Equal(t, 0.6, series.Rollups["max"])

	series, err = svc.Timeseries(ctx, TimeseriesRequest{Name: "cpu", Tags: map[string]string{"host": "a"}})
	require.NoError(t, err)
	require.Len(t, series.Points, 2)

	series, err = svc.Timeseries(ctx, TimeseriesRequest{Name: "memory"})
	require.NoError(t, err)
	require.NotNil(t, series.Points)
	require.Empty(t, series.Points)
	require.Empty(t, series.Rollups)

	_, err = svc.Timeseries(ctx, TimeseriesRequest{})
	require.True(t, IsValidationError(err))

	_, err = svc.Timeseries(ctx, TimeseriesRequest{Name: "cpu", From: now, To: now.Add(-time.Hour)})
	require.True(t, IsValidationError(err))
}

func TestLogsSearch(t *testing.T) {
	now := time.Now().UTC()
	svc := New(seed(t, now))
	ctx := context.Background()

	logs, err := svc.Logs(ctx, domain.LogFilter{Query: "request"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "request FAILED", logs[0].Message)

	logs, err = svc.Logs(ctx, domain.LogFilter{Level: "ERROR"})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	logs, err = svc.Logs(ctx, domain.LogFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "boot", logs[0].Message)

	_, err = svc.Logs(ctx, domain.LogFilter{Limit: -1})
	require.True(t, IsValidationError(err))
}

func TestTraceAndSpans(t *testing.T) {
	now := time.Now().UTC()
	svc := New(seed(t, now))
	ctx := context.Background()

	trace, err := svc.Trace(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", trace.TraceID)
	require.Len(t, trace.Spans, 2)
	require.Equal(t, "a", trace.Spans[0].SpanID)

	trace, err = svc.Trace(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, trace.Spans)

	spans, err := svc.Spans(ctx, domain.SpanFilter{MinDurationMS: 30})
	require.NoError(t, err)
	require.Len(t, spans, 2)

	spans, err = svc.Spans(ctx, domain.SpanFilter{Status: "ERROR"})
	require.NoError(t, err)
	require.Len(t, spans, 1)
	require.Equal(t, "handler", spans[0].Name)

	services, err := svc.Services(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
}
