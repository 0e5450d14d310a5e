package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
)

const (
	defaultMetricLimit = 10000
	defaultLogLimit    = 100
	defaultSpanLimit   = 500
)

func (s *Store) InsertMetricPoints(_ context.Context, points []domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		s.ensureService(p.Service)
		p.ID = s.id()
		p.TS = p.TS.UTC()
		p.Tags = copyStrings(p.Tags)
		s.metrics = append(s.metrics, p)
	}
	return nil
}

func (s *Store) InsertLogEvents(_ context.Context, events []domain.LogEvent) ([]domain.LogEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.LogEvent, 0, len(events))
	for _, e := range events {
		s.ensureService(e.Service)
		e.ID = s.id()
		e.TS = e.TS.UTC()
		e.Attrs = copyAny(e.Attrs)
		s.logs = append(s.logs, e)
		stored = append(stored, e)
	}
	return stored, nil
}

// InsertSpans validates the whole batch before storing any of it.
func (s *Store) InsertSpans(_ context.Context, spans []domain.Span) error {
	if len(spans) == 0 {
		return nil
	}
	for _, span := range spans {
		if span.DurationMS < 0 {
			return invalid("span %s has negative duration", span.SpanID)
		}
		if span.Status != domain.SpanStatusOK && span.Status != domain.SpanStatusError {
			return invalid("span %s has status %q", span.SpanID, span.Status)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, span := range spans {
		s.ensureService(span.Service)
		span.ID = s.id()
		span.StartTS = span.StartTS.UTC()
		span.Tags = copyAny(span.Tags)
		if span.ParentID != nil {
			parent := *span.ParentID
			span.ParentID = &parent
		}
		s.spans = append(s.spans, span)
	}
	return nil
}

func (s *Store) ListMetricPoints(_ context.Context, filter domain.MetricFilter) ([]domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	service := strings.TrimSpace(filter.Service)
	points := make([]domain.MetricPoint, 0)
	for _, p := range s.metrics {
		if p.Name != filter.Name || (service != "" && p.Service != service) {
			continue
		}
		if !inRange(p.TS, filter.From, filter.To) || !containsTags(p.Tags, filter.Tags) {
			continue
		}
		p.Tags = copyStrings(p.Tags)
		points = append(points, p)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].TS.Before(points[j].TS) })
	if limit := limitOrDefault(filter.Limit, defaultMetricLimit); len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

func (s *Store) AverageMetric(_ context.Context, name, service string, from, to time.Time) (float64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	service = strings.TrimSpace(service)
	var (
		sum   float64
		count int64
	)
	for _, p := range s.metrics {
		if p.Name != name || (service != "" && p.Service != service) {
			continue
		}
		if p.TS.Before(from) || p.TS.After(to) {
			continue
		}
		sum += p.Value
		count++
	}
	if count == 0 {
		return 0, 0, nil
	}
	return sum / float64(count), count, nil
}

func (s *Store) SearchLogs(_ context.Context, filter domain.LogFilter) ([]domain.LogEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	service := strings.TrimSpace(filter.Service)
	level := strings.TrimSpace(filter.Level)
	needle := strings.ToLower(filter.Query)
	events := make([]domain.LogEvent, 0)
	for _, e := range s.logs {
		if service != "" && e.Service != service {
			continue
		}
		if level != "" && !strings.EqualFold(e.Level, level) {
			continue
		}
		if !inRange(e.TS, filter.From, filter.To) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Message), needle) {
			continue
		}
		e.Attrs = copyAny(e.Attrs)
		events = append(events, e)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TS.Equal(events[j].TS) {
			return events[i].ID > events[j].ID
		}
		return events[i].TS.After(events[j].TS)
	})
	if limit := limitOrDefault(filter.Limit, defaultLogLimit); len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *Store) CountLogs(_ context.Context, service string, from, to time.Time) (domain.LogCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	service = strings.TrimSpace(service)
	var counts domain.LogCounts
	for _, e := range s.logs {
		if service != "" && e.Service != service {
			continue
		}
		if e.TS.Before(from) || e.TS.After(to) {
			continue
		}
		counts.Total++
		if domain.IsErrorLevel(e.Level) {
			counts.Errors++
		}
	}
	return counts, nil
}

func (s *Store) ListTraceSpans(_ context.Context, traceID string) ([]domain.Span, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spans := make([]domain.Span, 0)
	for _, span := range s.spans {
		if span.TraceID == traceID {
			spans = append(spans, cloneSpan(span))
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].StartTS.Before(spans[j].StartTS) })
	return spans, nil
}

func (s *Store) SearchSpans(_ context.Context, filter domain.SpanFilter) ([]domain.Span, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	service := strings.TrimSpace(filter.Service)
	status := strings.TrimSpace(filter.Status)
	spans := make([]domain.Span, 0)
	for _, span := range s.spans {
		if service != "" && span.Service != service {
			continue
		}
		if status != "" && span.Status != status {
			continue
		}
		if span.DurationMS < filter.MinDurationMS || !inRange(span.StartTS, filter.From, filter.To) {
			continue
		}
		spans = append(spans, cloneSpan(span))
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].StartTS.Equal(spans[j].StartTS) {
			return spans[i].ID > spans[j].ID
		}
		return spans[i].StartTS.After(spans[j].StartTS)
	})
	if limit := limitOrDefault(filter.Limit, defaultSpanLimit); len(spans) > limit {
		spans = spans[:limit]
	}
	return spans, nil
}

func containsTags(tags, want map[string]string) bool {
	for k, v := range want {
		if got, ok := tags[k]; !ok || got != v {
			return false
		}
	}
	return true
}

func cloneSpan(span domain.Span) domain.Span {
	span.Tags = copyAny(span.Tags)
	if span.ParentID != nil {
		parent := *span.ParentID
		span.ParentID = &parent
	}
	return span
}
