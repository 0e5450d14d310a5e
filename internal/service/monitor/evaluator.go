package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/dsl"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/metrics"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

const (
	defaultInterval       = 15 * time.Second
	defaultMonitorTimeout = 10 * time.Second
	loopName              = "monitor"
)

// TickReport summarizes one evaluation pass.
type TickReport struct {
	Evaluated   int
	Failed      int
	Transitions map[Kind]int
}

// Evaluator periodically evaluates every monitor and drives its alert.
// Only one Evaluator may run against a store at a time.
type Evaluator struct {
	monitors  repository.MonitorRepository
	telemetry repository.TelemetryRepository
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration

	// monitorTimeout bounds the store calls of a single monitor's evaluation.
	monitorTimeout time.Duration
	now            func() time.Time
}

// NewEvaluator constructs an evaluator ticking every interval.
func NewEvaluator(monitors repository.MonitorRepository, telemetry repository.TelemetryRepository, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *Evaluator {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		monitors:  monitors,
		telemetry: telemetry,
		logger:    logger.With("component", "monitor-evaluator"),
		metrics:   m,
		interval:  interval,

		monitorTimeout: defaultMonitorTimeout,
		now:            time.Now,
	}
}

// Run evaluates immediately and then once per interval until ctx is cancelled.
func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("monitor evaluator started", "interval", e.interval)
	e.runIteration(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("monitor evaluator stopped")
			return
		case <-ticker.C:
			e.runIteration(ctx)
		}
	}
}

func (e *Evaluator) runIteration(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := e.Tick(ctx); err != nil {
		e.logger.Warn("monitor tick failed", "error", err)
	}
}

// Tick evaluates every monitor once, however long that takes. Each monitor
// gets its own timeout; a monitor that fails to evaluate is logged and
// counted without affecting the others. Only listing monitors or ctx ending
// can stop the tick early.
func (e *Evaluator) Tick(ctx context.Context) (TickReport, error) {
	start := time.Now()
	defer func() { e.metrics.Tick(loopName, time.Since(start)) }()

	report := TickReport{Transitions: make(map[Kind]int)}
	monitors, err := e.monitors.ListMonitors(ctx)
	if err != nil {
		return report, fmt.Errorf("list monitors: %w", err)
	}

	now := e.now().UTC()
	for _, monitor := range monitors {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		mctx, cancel := context.WithTimeout(ctx, e.monitorTimeout)
		kind, err := e.evaluateMonitor(mctx, monitor, now)
		cancel()
		if err != nil {
			report.Failed++
			e.metrics.Evaluated("error")
			e.logger.Warn("monitor evaluation failed", "monitor_id", monitor.ID, "monitor", monitor.Name, "error", err)
			continue
		}
		report.Evaluated++
		e.metrics.Evaluated("ok")
		if kind != KindNone {
			report.Transitions[kind]++
			e.metrics.Transitioned(string(kind))
			e.logger.Info("alert transition", "monitor_id", monitor.ID, "monitor", monitor.Name, "transition", kind)
		}
	}
	return report, nil
}

func (e *Evaluator) evaluateMonitor(ctx context.Context, monitor domain.Monitor, now time.Time) (Kind, error) {
	eval, err := e.Evaluate(ctx, monitor, now)
	if err != nil {
		return KindNone, err
	}

	kind := KindNone
	_, err = e.monitors.UpsertAlert(ctx, monitor.ID, func(current *domain.Alert) (*domain.Alert, bool) {
		next, k := Transition(current, eval, now)
		kind = k
		return next, k != KindNone
	})
	if err != nil {
		return KindNone, fmt.Errorf("write alert: %w", err)
	}
	return kind, nil
}

// Evaluate computes the monitor's current value over [now-window, now].
func (e *Evaluator) Evaluate(ctx context.Context, monitor domain.Monitor, now time.Time) (Evaluation, error) {
	query, err := dsl.ParseQuery(monitor.Query)
	if err != nil {
		return Evaluation{}, err
	}
	window, err := dsl.ParseWindow(monitor.Window)
	if err != nil {
		return Evaluation{}, err
	}
	from := now.Add(-window)

	var value float64
	switch query.Source {
	case dsl.SourceMetric:
		avg, _, err := e.telemetry.AverageMetric(ctx, query.MetricName, query.ServiceFilter, from, now)
		if err != nil {
			return Evaluation{}, fmt.Errorf("average %s: %w", query.MetricName, err)
		}
		value = avg
	case dsl.SourceLogs:
		counts, err := e.telemetry.CountLogs(ctx, query.ServiceFilter, from, now)
		if err != nil {
			return Evaluation{}, fmt.Errorf("count logs: %w", err)
		}
		if counts.Total > 0 {
			value = float64(counts.Errors) / float64(counts.Total)
		}
	default:
		return Evaluation{}, fmt.Errorf("%w: unsupported source %q", dsl.ErrInvalidQuery, query.Source)
	}

	return Evaluation{
		Value:     value,
		Triggered: value > monitor.Threshold,
		Threshold: monitor.Threshold,
		Window:    monitor.Window,
	}, nil
}
