package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/lineproto"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository/memory"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/ws"
	"github.com/raj200501/WatchDog-datadog-local-stack/pkg/logger"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (Service, *memory.Store, *ws.Hub) {
	t.Helper()
	store := memory.New("prod")
	hub := ws.NewHub()
	svc := New(store, hub, logger.Discard(), nil).WithClock(func() time.Time { return fixedNow })
	return svc, store, hub
}

func float(v float64) *float64 { return &v }
func int64p(v int64) *int64    { return &v }

func TestMetricsStoresBatchAndRegistersServices(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	n, err := svc.Metrics(ctx, []MetricInput{
		{Name: "cpu.util", TS: fixedNow, Value: float(0.5), Service: "web", Tags: map[string]any{"host": "a", "core": 3}},
		{Name: "cpu.util", TS: fixedNow, Value: float(0), Service: "api"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	points, err := store.ListMetricPoints(ctx, domain.MetricFilter{Name: "cpu.util", Service: "web"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, map[string]string{"host": "a", "core": "3"}, points[0].Tags)

	services, err := store.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
}

func TestMetricsRejectsWholeBatch(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Metrics(ctx, []MetricInput{
		{Name: "cpu", TS: fixedNow, Value: float(1), Service: "web"},
		{Name: "cpu", TS: fixedNow, Service: "web"},
	})
	require.ErrorIs(t, err, ErrInvalidBatch)
	require.Contains(t, err.Error(), "metrics[1]")

	points, err := store.ListMetricPoints(ctx, domain.MetricFilter{Name: "cpu"})
	require.NoError(t, err)
	require.Empty(t, points)
}

func TestLinesDecodesAndStores(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	n, err := svc.Lines(ctx, "cpu.util:0.9|g|#service:web\n\nrequests:3|c")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	points, err := store.ListMetricPoints(ctx, domain.MetricFilter{Name: "requests"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, domain.UnknownService, points[0].Service)
	require.Equal(t, fixedNow, points[0].TS)
}

func TestLinesRejectsPayloadOnFirstBadLine(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Lines(ctx, "cpu:1|g\ncpu=2\ncpu:3|g")
	require.ErrorIs(t, err, lineproto.ErrMalformedLine)

	var lineErr *lineproto.MalformedLineError
	require.True(t, errors.As(err, &lineErr))
	require.Equal(t, 2, lineErr.Number)

	points, err := store.ListMetricPoints(ctx, domain.MetricFilter{Name: "cpu"})
	require.NoError(t, err)
	require.Empty(t, points)
}

func TestLogsPublishesAfterStore(t *testing.T) {
	svc, store, hub := newService(t)
	ctx := context.Background()

	web := hub.Subscribe(ctx, "web")
	defer web.Close()
	api := hub.Subscribe(ctx, "api")
	defer api.Close()

	n, err := svc.Logs(ctx, []LogInput{{TS: fixedNow, Service: "web", Level: "ERROR", Message: "boom", Attrs: map[string]any{"code": 500}}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	payload, err := web.Next(ctx)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "web", decoded["service"])
	require.Equal(t, "error", decoded["level"])
	require.Equal(t, "boom", decoded["message"])
	require.NotZero(t, decoded["id"])

	select {
	case p := <-api.C():
		t.Fatalf("api subscriber received %s", p)
	case <-time.After(20 * time.Millisecond):
	}

	events, err := store.SearchLogs(ctx, domain.LogFilter{Service: "web"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "error", events[0].Level)
}

func TestLogsRejectsUnknownLevel(t *testing.T) {
	svc, _, hub := newService(t)
	ctx := context.Background()
	sub := hub.Subscribe(ctx, "web")
	defer sub.Close()

	_, err := svc.Logs(ctx, []LogInput{{TS: fixedNow, Service: "web", Level: "loud", Message: "x"}})
	require.ErrorIs(t, err, ErrInvalidBatch)

	select {
	case <-sub.C():
		t.Fatal("rejected batch must not be published")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSpansValidation(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	parent := "root"

	n, err := svc.Spans(ctx, []SpanInput{
		{TraceID: "t1", SpanID: "root", Service: "web", Name: "GET /", StartTS: fixedNow, DurationMS: int64p(20), Status: "OK"},
		{TraceID: "t1", SpanID: "child", ParentID: &parent, Service: "db", Name: "SELECT", StartTS: fixedNow.Add(time.Millisecond), DurationMS: int64p(5), Status: "error"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	spans, err := store.ListTraceSpans(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	require.Equal(t, "root", spans[0].SpanID)
	require.Equal(t, "root", *spans[1].ParentID)

	_, err = svc.Spans(ctx, []SpanInput{{TraceID: "t2", SpanID: "a", Service: "web", Name: "x", StartTS: fixedNow, DurationMS: int64p(-1), Status: "ok"}})
	require.ErrorIs(t, err, ErrInvalidBatch)
	_, err = svc.Spans(ctx, []SpanInput{{TraceID: "t2", SpanID: "a", Service: "web", Name: "x", StartTS: fixedNow, DurationMS: int64p(1), Status: "unset"}})
	require.ErrorIs(t, err, ErrInvalidBatch)
}

func TestEmptyBatchesAreAccepted(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	n, err := svc.Metrics(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, n)
	n, err = svc.Lines(ctx, "\n  \n")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOversizedBatchRejected(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Logs(context.Background(), make([]LogInput, MaxBatch+1))
	require.ErrorIs(t, err, ErrInvalidBatch)
}
