package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

func TestInsertRegistersServicesOnce(t *testing.T) {
	ctx := context.Background()
	store := New("")
	now := time.Now()

	require.NoError(t, store.InsertMetricPoints(ctx, []domain.MetricPoint{
		{Name: "latency", TS: now, Value: 1, Service: "checkout"},
		{Name: "latency", TS: now, Value: 2, Service: "checkout"},
	}))
	_, err := store.InsertLogEvents(ctx, []domain.LogEvent{{TS: now, Service: "search", Level: "info", Message: "ok"}})
	require.NoError(t, err)

	services, err := store.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	require.Equal(t, "checkout", services[0].Name)
	require.Equal(t, domain.DefaultServiceEnv, services[0].Env)
	require.Equal(t, "search", services[1].Name)
}

func TestInsertSpansRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	store := New("prod")

	err := store.InsertSpans(ctx, []domain.Span{
		{TraceID: "t1", SpanID: "a", Service: "api", Status: domain.SpanStatusOK, DurationMS: 5},
		{TraceID: "t1", SpanID: "b", Service: "api", Status: domain.SpanStatusOK, DurationMS: -1},
	})
	require.ErrorIs(t, err, repository.ErrInvalidArgument)

	spans, err := store.ListTraceSpans(ctx, "t1")
	require.NoError(t, err)
	require.Empty(t, spans)
}

func TestSearchLogsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := New("prod")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.InsertLogEvents(ctx, []domain.LogEvent{
		{TS: base, Service: "api", Level: "error", Message: "Timeout talking to DB"},
		{TS: base.Add(time.Minute), Service: "api", Level: "info", Message: "db ok"},
		{TS: base.Add(2 * time.Minute), Service: "web", Level: "error", Message: "db down"},
	})
	require.NoError(t, err)

	events, err := store.SearchLogs(ctx, domain.LogFilter{Query: "DB", Service: "api"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "db ok", events[0].Message)

	events, err = store.SearchLogs(ctx, domain.LogFilter{Level: "ERROR", Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "web", events[0].Service)

	counts, err := store.CountLogs(ctx, "api", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, domain.LogCounts{Total: 2, Errors: 1}, counts)
}

func TestMetricTagFilterAndAverage(t *testing.T) {
	ctx := context.Background()
	store := New("prod")
	now := time.Now()

	require.NoError(t, store.InsertMetricPoints(ctx, []domain.MetricPoint{
		{Name: "cpu", TS: now.Add(-time.Minute), Value: 10, Service: "api", Tags: map[string]string{"host": "a"}},
		{Name: "cpu", TS: now.Add(-time.Minute), Value: 30, Service: "api", Tags: map[string]string{"host": "b"}},
		{Name: "cpu", TS: now.Add(-time.Hour), Value: 1000, Service: "api"},
	}))

	points, err := store.ListMetricPoints(ctx, domain.MetricFilter{Name: "cpu", Tags: map[string]string{"host": "b"}})
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, 30.0, points[0].Value)

	avg, count, err := store.AverageMetric(ctx, "cpu", "api", now.Add(-5*time.Minute), now)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.InDelta(t, 20.0, avg, 1e-9)
}

func TestUpsertAlertKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	store := New("prod")
	monitor := &domain.Monitor{Name: "m", Type: "metric", Query: "q", Window: "5m"}
	require.NoError(t, store.CreateMonitor(ctx, monitor))

	now := time.Now().UTC()
	first, err := store.UpsertAlert(ctx, monitor.ID, func(current *domain.Alert) (*domain.Alert, bool) {
		require.Nil(t, current)
		return &domain.Alert{Status: domain.AlertStatusFiring, FiredAt: now}, true
	})
	require.NoError(t, err)

	second, err := store.UpsertAlert(ctx, monitor.ID, func(current *domain.Alert) (*domain.Alert, bool) {
		require.NotNil(t, current)
		next := *current
		next.Status = domain.AlertStatusResolved
		next.ResolvedAt = &now
		return &next, true
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	alerts, err := store.ListAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, domain.AlertStatusResolved, alerts[0].Status)

	unchanged, err := store.UpsertAlert(ctx, monitor.ID, func(current *domain.Alert) (*domain.Alert, bool) {
		return nil, false
	})
	require.NoError(t, err)
	require.Equal(t, second.ID, unchanged.ID)
}

func TestDeleteMonitorCascades(t *testing.T) {
	ctx := context.Background()
	store := New("prod")
	monitor := &domain.Monitor{Name: "m"}
	require.NoError(t, store.CreateMonitor(ctx, monitor))
	_, err := store.UpsertAlert(ctx, monitor.ID, func(*domain.Alert) (*domain.Alert, bool) {
		return &domain.Alert{Status: domain.AlertStatusFiring, FiredAt: time.Now()}, true
	})
	require.NoError(t, err)
	slo := &domain.SLO{Name: "s", MonitorID: &monitor.ID, Target: 0.99, WindowDays: 7}
	require.NoError(t, store.CreateSLO(ctx, slo))

	require.NoError(t, store.DeleteMonitor(ctx, monitor.ID))

	alerts, err := store.ListAlerts(ctx)
	require.NoError(t, err)
	require.Empty(t, alerts)
	got, err := store.GetSLO(ctx, slo.ID)
	require.NoError(t, err)
	require.Nil(t, got.MonitorID)

	require.True(t, errors.Is(store.DeleteMonitor(ctx, monitor.ID), repository.ErrNotFound))
}

func TestSyntheticResultsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := New("prod")
	check := &domain.SyntheticCheck{Name: "home", Type: "http", URL: "http://x", IntervalSec: 30, TimeoutMS: 500}
	require.NoError(t, store.CreateCheck(ctx, check))

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.InsertResult(ctx, &domain.SyntheticResult{CheckID: check.ID, TS: base.Add(time.Duration(i) * time.Second), OK: true}))
	}
	results, err := store.ListResults(ctx, check.ID, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].TS.After(results[1].TS))

	err = store.InsertResult(ctx, &domain.SyntheticResult{CheckID: check.ID + 100, TS: base})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIncidentEvents(t *testing.T) {
	ctx := context.Background()
	store := New("prod")
	inc := &domain.Incident{Title: "db down", Severity: "sev1", Status: "open", CreatedAt: time.Now()}
	require.NoError(t, store.CreateIncident(ctx, inc))

	require.NoError(t, store.AppendIncidentEvent(ctx, &domain.IncidentEvent{IncidentID: inc.ID, TS: time.Now(), Kind: "note", Message: "paged"}))
	require.ErrorIs(t, store.AppendIncidentEvent(ctx, &domain.IncidentEvent{IncidentID: 999}), repository.ErrNotFound)

	events, err := store.ListIncidentEvents(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "paged", events[0].Message)
}
