package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

const (
	DefaultLogLimit  = 100
	DefaultSpanLimit = 500
	MaxLimit         = 10000
)

var (
	errMissingMetric = errors.New("metric name is required")
	errMissingTrace  = errors.New("trace id is required")
	errInvalidRange  = errors.New("from must not be after to")
	errInvalidLimit  = errors.New("limit must be positive")
)

// IsValidationError reports whether err stems from invalid query parameters.
func IsValidationError(err error) bool {
	for _, target := range []error{errMissingMetric, errMissingTrace, errInvalidRange, errInvalidLimit} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Repository is the read side of the telemetry store.
type Repository interface {
	repository.ServiceRepository
	ListMetricPoints(ctx context.Context, filter domain.MetricFilter) ([]domain.MetricPoint, error)
	SearchLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEvent, error)
	ListTraceSpans(ctx context.Context, traceID string) ([]domain.Span, error)
	SearchSpans(ctx context.Context, filter domain.SpanFilter) ([]domain.Span, error)
}

// TimeseriesRequest selects the points of one metric.
type TimeseriesRequest struct {
	Name    string
	Service string
	Tags    map[string]string
	From    time.Time
	To      time.Time
}

// Timeseries is a metric's points with their rollups. Rollups is empty when
// no point matched.
type Timeseries struct {
	Points  []domain.MetricPoint `json:"points"`
	Rollups map[string]float64   `json:"rollups"`
}

// Trace is every span of one trace ordered by start time.
type Trace struct {
	TraceID string        `json:"trace_id"`
	Spans   []domain.Span `json:"spans"`
}

// Service answers read queries over stored telemetry.
type Service struct {
	repo Repository
}

// New returns a query service.
func New(repo Repository) Service {
	return Service{repo: repo}
}

func (s Service) Services(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx)
}

// Timeseries returns the points of a metric and their avg, min and max.
func (s Service) Timeseries(ctx context.Context, req TimeseriesRequest) (Timeseries, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Timeseries{}, errMissingMetric
	}
	if err := checkRange(req.From, req.To); err != nil {
		return Timeseries{}, err
	}

	points, err := s.repo.ListMetricPoints(ctx, domain.MetricFilter{
		Name:    name,
		Service: strings.TrimSpace(req.Service),
		Tags:    req.Tags,
		From:    req.From,
		To:      req.To,
		Limit:   MaxLimit,
	})
	if err != nil {
		return Timeseries{}, err
	}
	if points == nil {
		points = []domain.MetricPoint{}
	}
	return Timeseries{Points: points, Rollups: Rollups(points)}, nil
}

// Rollups aggregates point values. It returns an empty map for no points.
func Rollups(points []domain.MetricPoint) map[string]float64 {
	rollups := map[string]float64{}
	if len(points) == 0 {
		return rollups
	}
	sum, lo, hi := 0.0, points[0].Value, points[0].Value
	for _, p := range points {
		sum += p.Value
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	rollups["avg"] = sum / float64(len(points))
	rollups["min"] = lo
	rollups["max"] = hi
	return rollups
}

// Logs searches log events newest first.
func (s Service) Logs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEvent, error) {
	if err := checkRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	limit, err := clampLimit(filter.Limit, DefaultLogLimit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	if filter.Level != "" {
		filter.Level, _ = domain.NormalizeLevel(filter.Level)
	}
	logs, err := s.repo.SearchLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []domain.LogEvent{}
	}
	return logs, nil
}

// Trace returns the spans of traceID. An unknown trace yields no spans.
func (s Service) Trace(ctx context.Context, traceID string) (Trace, error) {
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		return Trace{}, errMissingTrace
	}
	spans, err := s.repo.ListTraceSpans(ctx, traceID)
	if err != nil {
		return Trace{}, err
	}
	if spans == nil {
		spans = []domain.Span{}
	}
	return Trace{TraceID: traceID, Spans: spans}, nil
}

// Spans searches spans across traces.
func (s Service) Spans(ctx context.Context, filter domain.SpanFilter) ([]domain.Span, error) {
	if err := checkRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	limit, err := clampLimit(filter.Limit, DefaultSpanLimit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	spans, err := s.repo.SearchSpans(ctx, filter)
	if err != nil {
		return nil, err
	}
	if spans == nil {
		spans = []domain.Span{}
	}
	return spans, nil
}

func checkRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return errInvalidRange
	}
	return nil
}

func clampLimit(limit, fallback int) (int, error) {
	switch {
	case limit < 0:
		return 0, errInvalidLimit
	case limit == 0:
		return fallback, nil
	case limit > MaxLimit:
		return MaxLimit, nil
	}
	return limit, nil
}
