package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/dsl"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository/memory"
	"github.com/raj200501/WatchDog-datadog-local-stack/pkg/logger"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newEvaluator(store *memory.Store, c *clock) *Evaluator {
	e := NewEvaluator(store, store, logger.Discard(), nil, time.Second)
	e.now = c.Now
	return e
}

func createMonitor(t *testing.T, store *memory.Store, m domain.Monitor) domain.Monitor {
	t.Helper()
	if err := store.CreateMonitor(context.Background(), &m); err != nil {
		t.Fatalf("create monitor: %v", err)
	}
	return m
}

func ingestCPU(t *testing.T, store *memory.Store, ts time.Time, value float64) {
	t.Helper()
	err := store.InsertMetricPoints(context.Background(), []domain.MetricPoint{{Name: "cpu.util", TS: ts, Value: value, Service: "web"}})
	if err != nil {
		t.Fatalf("insert metric: %v", err)
	}
}

func alertsOf(t *testing.T, store *memory.Store) []domain.Alert {
	t.Helper()
	alerts, err := store.ListAlerts(context.Background())
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	return alerts
}

func TestEvaluatorFiresThenResolves(t *testing.T) {
	ctx := context.Background()
	store := memory.New("prod")
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	e := newEvaluator(store, c)

	monitor := createMonitor(t, store, domain.Monitor{
		Name: "web cpu", Type: "metric", Query: "metric:avg(last_5m):cpu.util{service:web}",
		Threshold: 0.8, Window: "5m", Severity: "high",
	})

	ingestCPU(t, store, c.now.Add(-time.Minute), 0.9)
	report, err := e.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if report.Transitions[KindFired] != 1 {
		t.Fatalf("expected one fired transition, got %v", report.Transitions)
	}
	alerts := alertsOf(t, store)
	if len(alerts) != 1 || alerts[0].Status != domain.AlertStatusFiring || alerts[0].MonitorID != monitor.ID {
		t.Fatalf("expected firing alert for monitor %d, got %+v", monitor.ID, alerts)
	}
	firedAt := alerts[0].FiredAt

	c.now = c.now.Add(time.Second)
	ingestCPU(t, store, c.now, 0.1)
	if _, err := e.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	alerts = alertsOf(t, store)
	if len(alerts) != 1 {
		t.Fatalf("expected a single alert row, got %d", len(alerts))
	}
	if alerts[0].Status != domain.AlertStatusResolved || alerts[0].ResolvedAt == nil {
		t.Fatalf("expected resolved alert, got %+v", alerts[0])
	}
	if !alerts[0].FiredAt.Equal(firedAt) {
		t.Fatalf("fired_at changed on resolve")
	}
	if alerts[0].Payload["value"] != 0.5 {
		t.Fatalf("payload value = %v, want 0.5", alerts[0].Payload["value"])
	}
}

func TestEvaluatorTicksAreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New("prod")
	c := &clock{now: time.Now().UTC()}
	e := newEvaluator(store, c)

	createMonitor(t, store, domain.Monitor{Name: "m", Query: "metric:avg(5m):cpu.util{}", Threshold: 0.5, Window: "5m"})
	ingestCPU(t, store, c.now.Add(-time.Minute), 0.9)

	for i := 0; i < 3; i++ {
		if _, err := e.Tick(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	alerts := alertsOf(t, store)
	if len(alerts) != 1 {
		t.Fatalf("expected one alert after repeated ticks, got %d", len(alerts))
	}
	if alerts[0].Status != domain.AlertStatusFiring {
		t.Fatalf("status = %s", alerts[0].Status)
	}
}

func TestEvaluatorNoAlertWhenCalm(t *testing.T) {
	ctx := context.Background()
	store := memory.New("prod")
	c := &clock{now: time.Now().UTC()}
	e := newEvaluator(store, c)

	createMonitor(t, store, domain.Monitor{Name: "equal", Query: "metric:avg(5m):cpu.util{service:web}", Threshold: 0.9, Window: "5m"})
	createMonitor(t, store, domain.Monitor{Name: "empty", Query: "metric:avg(5m):mem.used{}", Threshold: 0, Window: "5m"})
	ingestCPU(t, store, c.now.Add(-time.Minute), 0.9)

	report, err := e.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if report.Evaluated != 2 || len(alertsOf(t, store)) != 0 {
		t.Fatalf("expected no alerts, report %+v", report)
	}
}

func TestEvaluatorIgnoresPointsOutsideWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.New("prod")
	c := &clock{now: time.Now().UTC()}
	e := newEvaluator(store, c)

	createMonitor(t, store, domain.Monitor{Name: "m", Query: "metric:avg(5m):cpu.util{}", Threshold: 0.5, Window: "5m"})
	ingestCPU(t, store, c.now.Add(-10*time.Minute), 0.9)

	if _, err := e.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n := len(alertsOf(t, store)); n != 0 {
		t.Fatalf("expected no alert, got %d", n)
	}
}

func TestEvaluatorLogErrorRate(t *testing.T) {
	ctx := context.Background()
	store := memory.New("prod")
	c := &clock{now: time.Now().UTC()}
	e := newEvaluator(store, c)

	monitor := createMonitor(t, store, domain.Monitor{Name: "api errors", Query: "logs:error_rate(last_10m){service:api}", Threshold: 0.25, Window: "10m"})
	_, err := store.InsertLogEvents(ctx, []domain.LogEvent{
		{TS: c.now.Add(-time.Minute), Service: "api", Level: "ERROR", Message: "a"},
		{TS: c.now.Add(-time.Minute), Service: "api", Level: "info", Message: "b"},
		{TS: c.now.Add(-time.Minute), Service: "web", Level: "error", Message: "c"},
	})
	if err != nil {
		t.Fatalf("insert logs: %v", err)
	}

	eval, err := e.Evaluate(ctx, monitor, c.now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Value != 0.5 || !eval.Triggered {
		t.Fatalf("unexpected evaluation %+v", eval)
	}
}

func TestEvaluatorIsolatesBrokenMonitors(t *testing.T) {
	ctx := context.Background()
	store := memory.New("prod")
	c := &clock{now: time.Now().UTC()}
	e := newEvaluator(store, c)

	createMonitor(t, store, domain.Monitor{Name: "bad window", Query: "metric:avg(5m):cpu.util{}", Threshold: 0.5, Window: "5s"})
	createMonitor(t, store, domain.Monitor{Name: "bad query", Query: "cpu > 0.5", Threshold: 0.5, Window: "5m"})
	good := createMonitor(t, store, domain.Monitor{Name: "good", Query: "metric:avg(5m):cpu.util{}", Threshold: 0.5, Window: "5m"})
	ingestCPU(t, store, c.now.Add(-time.Minute), 0.9)

	report, err := e.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if report.Failed != 2 || report.Evaluated != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	alerts := alertsOf(t, store)
	if len(alerts) != 1 || alerts[0].MonitorID != good.ID {
		t.Fatalf("expected alert for good monitor only, got %+v", alerts)
	}

	_, err = e.Evaluate(ctx, domain.Monitor{Query: "cpu > 0.5", Window: "5m"}, c.now)
	if !errors.Is(err, dsl.ErrInvalidQuery) {
		t.Fatalf("expected invalid query, got %v", err)
	}
}

type failingMonitors struct {
	repository.MonitorRepository
}

func (failingMonitors) ListMonitors(context.Context) ([]domain.Monitor, error) {
	return nil, repository.ErrUnavailable
}

func TestTickReportsListFailure(t *testing.T) {
	store := memory.New("prod")
	e := NewEvaluator(failingMonitors{}, store, logger.Discard(), nil, time.Second)
	if _, err := e.Tick(context.Background()); !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := memory.New("prod")
	createMonitor(t, store, domain.Monitor{Name: "m", Query: "metric:avg(5m):cpu.util{}", Threshold: 0.5, Window: "5m"})
	ingestCPU(t, store, time.Now().Add(-time.Second), 0.9)

	e := NewEvaluator(store, store, logger.Discard(), nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for len(alertsOf(t, store)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first tick did not run immediately")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

type slowTelemetry struct {
	repository.TelemetryRepository
	delay time.Duration
}

func (s slowTelemetry) AverageMetric(ctx context.Context, name, service string, from, to time.Time) (float64, int64, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}
	return s.TelemetryRepository.AverageMetric(ctx, name, service, from, to)
}

func TestIterationLongerThanIntervalEvaluatesEveryMonitor(t *testing.T) {
	store := memory.New("prod")
	for i := 0; i < 4; i++ {
		createMonitor(t, store, domain.Monitor{Name: fmt.Sprintf("cpu %d", i), Query: "metric:avg(5m):cpu.util{}", Threshold: 0.5, Window: "5m"})
	}
	ingestCPU(t, store, time.Now().Add(-time.Minute), 0.9)

	e := NewEvaluator(store, slowTelemetry{TelemetryRepository: store, delay: 60 * time.Millisecond}, logger.Discard(), nil, 100*time.Millisecond)
	e.runIteration(context.Background())

	alerts := alertsOf(t, store)
	if len(alerts) != 4 {
		t.Fatalf("expected an alert for each of 4 monitors, got %d", len(alerts))
	}
	for _, alert := range alerts {
		if alert.Status != domain.AlertStatusFiring {
			t.Fatalf("alert for monitor %d is %s", alert.MonitorID, alert.Status)
		}
	}
}

func TestMonitorTimeoutIsPerMonitor(t *testing.T) {
	store := memory.New("prod")
	for i := 0; i < 3; i++ {
		createMonitor(t, store, domain.Monitor{Name: fmt.Sprintf("cpu %d", i), Query: "metric:avg(5m):cpu.util{}", Threshold: 0.5, Window: "5m"})
	}

	e := NewEvaluator(store, slowTelemetry{TelemetryRepository: store, delay: time.Second}, logger.Discard(), nil, time.Second)
	e.monitorTimeout = 10 * time.Millisecond

	report, err := e.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if report.Failed != 3 || report.Evaluated != 0 {
		t.Fatalf("expected every monitor to be attempted and time out, got %+v", report)
	}
}
