package synthetics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/metrics"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

const (
	defaultInterval    = 30 * time.Second
	defaultConcurrency = 8
	defaultTimeout     = 10 * time.Second
	maxDrainBytes      = 64 << 10
	writeTimeout       = 5 * time.Second
	loopName           = "synthetics"
	userAgent          = "watchdog-synthetics/1.0"
)

// TickReport summarizes one probe pass.
type TickReport struct {
	Probed      int
	Failed      int
	WriteErrors int
}

// Scheduler probes every synthetic check once per interval.
type Scheduler struct {
	checks      repository.SyntheticRepository
	client      *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
	interval    time.Duration
	concurrency int

	now func() time.Time
}

// NewScheduler constructs a scheduler. A nil client uses a zero http.Client;
// per-probe deadlines come from each check's timeout.
func NewScheduler(checks repository.SyntheticRepository, client *http.Client, logger *slog.Logger, m *metrics.Metrics, interval time.Duration, concurrency int) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		checks:      checks,
		client:      client,
		logger:      logger.With("component", "synthetics"),
		metrics:     m,
		interval:    interval,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run probes immediately and then once per interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("synthetics scheduler started", "interval", s.interval, "concurrency", s.concurrency)
	s.runIteration(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("synthetics scheduler stopped")
			return
		case <-ticker.C:
			s.runIteration(ctx)
		}
	}
}

func (s *Scheduler) runIteration(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Tick(ctx); err != nil {
		s.logger.Warn("synthetics tick failed", "error", err)
	}
}

// Tick probes every check once and records one result per check. Probes run
// concurrently up to the configured limit; a failing probe or result write
// never affects the other checks.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	start := time.Now()
	defer func() { s.metrics.Tick(loopName, time.Since(start)) }()

	checks, err := s.checks.ListChecks(ctx)
	if err != nil {
		return TickReport{}, fmt.Errorf("list checks: %w", err)
	}

	var (
		failed      atomic.Int64
		writeErrors atomic.Int64
		g           errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, check := range checks {
		g.Go(func() error {
			result := s.Probe(ctx, check)
			if !result.OK {
				failed.Add(1)
			}
			if err := s.record(ctx, &result); err != nil {
				writeErrors.Add(1)
				s.logger.Warn("failed to record probe result", "check_id", check.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return TickReport{
		Probed:      len(checks),
		Failed:      int(failed.Load()),
		WriteErrors: int(writeErrors.Load()),
	}, nil
}

func (s *Scheduler) record(parent context.Context, result *domain.SyntheticResult) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), writeTimeout)
	defer cancel()
	return s.checks.InsertResult(ctx, result)
}

// Probe issues one GET against the check URL within the check timeout.
// Transport failures are reported in the result, never as an error.
func (s *Scheduler) Probe(ctx context.Context, check domain.SyntheticCheck) domain.SyntheticResult {
	timeout := check.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	result := domain.SyntheticResult{CheckID: check.ID, TS: s.now().UTC()}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	status, err := s.get(probeCtx, check.URL)
	latency := time.Since(start)
	result.LatencyMS = latency.Milliseconds()

	if err != nil {
		message := describe(err, probeCtx, timeout)
		result.Error = &message
		s.logger.Debug("probe failed", "check_id", check.ID, "url", check.URL, "error", message)
	} else {
		result.StatusCode = &status
		result.OK = status < http.StatusInternalServerError
	}
	s.metrics.Probed(result.OK, latency)
	return result
}

func (s *Scheduler) get(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	return resp.StatusCode, nil
}

func describe(err error, ctx context.Context, timeout time.Duration) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("timeout after %s: %v", timeout, err)
	}
	return err.Error()
}
