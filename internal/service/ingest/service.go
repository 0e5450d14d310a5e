package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/lineproto"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/metrics"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/ws"
)

// MaxBatch caps the number of items accepted in one request.
const MaxBatch = 10000

// ErrInvalidBatch is matched by every validation failure of a batch.
var ErrInvalidBatch = errors.New("invalid batch")

// Kinds label ingested items in metrics and logs.
const (
	KindMetrics = "metrics"
	KindLogs    = "logs"
	KindSpans   = "spans"
	KindLines   = "dogstatsd"
)

// MetricInput is an inbound metric point. Tag values of any JSON type are
// stored in their textual form.
type MetricInput struct {
	Name    string         `json:"name"`
	TS      time.Time      `json:"ts"`
	Value   *float64       `json:"value"`
	Tags    map[string]any `json:"tags"`
	Service string         `json:"service"`
}

// LogInput is an inbound log event.
type LogInput struct {
	TS      time.Time      `json:"ts"`
	Service string         `json:"service"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs"`
}

// SpanInput is an inbound trace span.
type SpanInput struct {
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   *string        `json:"parent_id"`
	Service    string         `json:"service"`
	Name       string         `json:"name"`
	StartTS    time.Time      `json:"start_ts"`
	DurationMS *int64         `json:"duration_ms"`
	Status     string         `json:"status"`
	Tags       map[string]any `json:"tags"`
}

// Service validates telemetry batches, persists them and feeds the live tail.
type Service struct {
	repo    repository.TelemetryRepository
	hub     *ws.Hub
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New constructs an ingestion service. hub may be nil when live tail is disabled.
func New(repo repository.TelemetryRepository, hub *ws.Hub, logger *slog.Logger, m *metrics.Metrics) Service {
	return Service{repo: repo, hub: hub, logger: logger, metrics: m, now: time.Now}
}

// WithClock returns a copy of the service using now for ingestion timestamps.
func (s Service) WithClock(now func() time.Time) Service {
	s.now = now
	return s
}

// Metrics validates and stores a metric batch atomically.
func (s Service) Metrics(ctx context.Context, batch []MetricInput) (int, error) {
	if err := checkSize(len(batch)); err != nil {
		s.metrics.Rejected(KindMetrics)
		return 0, err
	}
	points := make([]domain.MetricPoint, 0, len(batch))
	for i, in := range batch {
		point, err := in.toPoint()
		if err != nil {
			s.metrics.Rejected(KindMetrics)
			return 0, fmt.Errorf("%w: metrics[%d]: %v", ErrInvalidBatch, i, err)
		}
		points = append(points, point)
	}
	return s.storePoints(ctx, KindMetrics, points)
}

// Lines decodes a line-protocol payload and stores it. The first malformed
// line rejects the whole payload.
func (s Service) Lines(ctx context.Context, payload string) (int, error) {
	points, err := lineproto.DecodeBatch(payload, s.now())
	if err != nil {
		s.metrics.Rejected(KindLines)
		return 0, err
	}
	if err := checkSize(len(points)); err != nil {
		s.metrics.Rejected(KindLines)
		return 0, err
	}
	return s.storePoints(ctx, KindLines, points)
}

func (s Service) storePoints(ctx context.Context, kind string, points []domain.MetricPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	if err := s.repo.InsertMetricPoints(ctx, points); err != nil {
		return 0, fmt.Errorf("store metric points: %w", err)
	}
	s.metrics.Ingested(kind, len(points))
	return len(points), nil
}

// Logs validates and stores a log batch, then publishes every stored event to
// the live tail of its service.
func (s Service) Logs(ctx context.Context, batch []LogInput) (int, error) {
	if err := checkSize(len(batch)); err != nil {
		s.metrics.Rejected(KindLogs)
		return 0, err
	}
	events := make([]domain.LogEvent, 0, len(batch))
	for i, in := range batch {
		event, err := in.toEvent()
		if err != nil {
			s.metrics.Rejected(KindLogs)
			return 0, fmt.Errorf("%w: logs[%d]: %v", ErrInvalidBatch, i, err)
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return 0, nil
	}

	stored, err := s.repo.InsertLogEvents(ctx, events)
	if err != nil {
		return 0, fmt.Errorf("store log events: %w", err)
	}
	s.metrics.Ingested(KindLogs, len(stored))
	for _, event := range stored {
		s.publish(event)
	}
	return len(stored), nil
}

// Spans validates and stores a span batch atomically.
func (s Service) Spans(ctx context.Context, batch []SpanInput) (int, error) {
	if err := checkSize(len(batch)); err != nil {
		s.metrics.Rejected(KindSpans)
		return 0, err
	}
	spans := make([]domain.Span, 0, len(batch))
	for i, in := range batch {
		span, err := in.toSpan()
		if err != nil {
			s.metrics.Rejected(KindSpans)
			return 0, fmt.Errorf("%w: spans[%d]: %v", ErrInvalidBatch, i, err)
		}
		spans = append(spans, span)
	}
	if len(spans) == 0 {
		return 0, nil
	}
	if err := s.repo.InsertSpans(ctx, spans); err != nil {
		return 0, fmt.Errorf("store spans: %w", err)
	}
	s.metrics.Ingested(KindSpans, len(spans))
	return len(spans), nil
}

func (s Service) publish(event domain.LogEvent) {
	if s.hub == nil {
		return
	}
	data, err := MarshalLogEvent(event)
	if err != nil {
		s.logger.Warn("failed to marshal log payload", "error", err, "service", event.Service)
		return
	}
	s.hub.Publish(event.Service, data)
}

// MarshalLogEvent formats a log event for live tail payloads.
func MarshalLogEvent(event domain.LogEvent) ([]byte, error) {
	attrs := event.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	payload := map[string]any{
		"id":      event.ID,
		"ts":      event.TS.UTC().Format(time.RFC3339Nano),
		"service": event.Service,
		"level":   event.Level,
		"message": event.Message,
		"attrs":   attrs,
	}
	return json.Marshal(payload)
}

func checkSize(n int) error {
	if n > MaxBatch {
		return fmt.Errorf("%w: %d items exceeds limit of %d", ErrInvalidBatch, n, MaxBatch)
	}
	return nil
}

func (in MetricInput) toPoint() (domain.MetricPoint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.MetricPoint{}, errors.New("name is required")
	}
	service := strings.TrimSpace(in.Service)
	if service == "" {
		return domain.MetricPoint{}, errors.New("service is required")
	}
	if in.TS.IsZero() {
		return domain.MetricPoint{}, errors.New("ts is required")
	}
	if in.Value == nil {
		return domain.MetricPoint{}, errors.New("value is required")
	}
	tags := make(map[string]string, len(in.Tags))
	for k, v := range in.Tags {
		if v == nil {
			tags[k] = ""
			continue
		}
		if str, ok := v.(string); ok {
			tags[k] = str
			continue
		}
		tags[k] = fmt.Sprint(v)
	}
	return domain.MetricPoint{
		Name:    name,
		TS:      in.TS.UTC(),
		Value:   *in.Value,
		Tags:    tags,
		Service: service,
	}, nil
}

func (in LogInput) toEvent() (domain.LogEvent, error) {
	service := strings.TrimSpace(in.Service)
	if service == "" {
		return domain.LogEvent{}, errors.New("service is required")
	}
	if in.TS.IsZero() {
		return domain.LogEvent{}, errors.New("ts is required")
	}
	level, ok := domain.NormalizeLevel(in.Level)
	if !ok {
		return domain.LogEvent{}, fmt.Errorf("unknown level %q", in.Level)
	}
	attrs := in.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	return domain.LogEvent{
		TS:      in.TS.UTC(),
		Service: service,
		Level:   level,
		Message: in.Message,
		Attrs:   attrs,
	}, nil
}

func (in SpanInput) toSpan() (domain.Span, error) {
	switch {
	case strings.TrimSpace(in.TraceID) == "":
		return domain.Span{}, errors.New("trace_id is required")
	case strings.TrimSpace(in.SpanID) == "":
		return domain.Span{}, errors.New("span_id is required")
	case strings.TrimSpace(in.Service) == "":
		return domain.Span{}, errors.New("service is required")
	case strings.TrimSpace(in.Name) == "":
		return domain.Span{}, errors.New("name is required")
	case in.StartTS.IsZero():
		return domain.Span{}, errors.New("start_ts is required")
	case in.DurationMS == nil:
		return domain.Span{}, errors.New("duration_ms is required")
	case *in.DurationMS < 0:
		return domain.Span{}, errors.New("duration_ms must not be negative")
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != domain.SpanStatusOK && status != domain.SpanStatusError {
		return domain.Span{}, fmt.Errorf("status must be %s or %s", domain.SpanStatusOK, domain.SpanStatusError)
	}
	var parent *string
	if in.ParentID != nil && strings.TrimSpace(*in.ParentID) != "" {
		p := strings.TrimSpace(*in.ParentID)
		parent = &p
	}
	tags := in.Tags
	if tags == nil {
		tags = map[string]any{}
	}
	return domain.Span{
		TraceID:    strings.TrimSpace(in.TraceID),
		SpanID:     strings.TrimSpace(in.SpanID),
		ParentID:   parent,
		Service:    strings.TrimSpace(in.Service),
		Name:       strings.TrimSpace(in.Name),
		StartTS:    in.StartTS.UTC(),
		DurationMS: *in.DurationMS,
		Status:     status,
		Tags:       tags,
	}, nil
}
