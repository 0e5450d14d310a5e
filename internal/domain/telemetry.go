package domain

import (
	"strings"
	"time"
)

// Log severity levels accepted by ingestion.
const (
	LevelDebug    = "debug"
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelCritical = "critical"
	LevelFatal    = "fatal"
)

// Span statuses.
const (
	SpanStatusOK    = "ok"
	SpanStatusError = "error"
)

var knownLevels = map[string]struct{}{
	LevelDebug:    {},
	LevelInfo:     {},
	LevelWarn:     {},
	LevelWarning:  {},
	LevelError:    {},
	LevelCritical: {},
	LevelFatal:    {},
}

// NormalizeLevel lower-cases a severity level and reports whether it is one of
// the accepted levels.
func NormalizeLevel(level string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	_, ok := knownLevels[normalized]
	return normalized, ok
}

// IsErrorLevel reports whether level counts towards a log error rate.
func IsErrorLevel(level string) bool {
	return strings.EqualFold(strings.TrimSpace(level), LevelError)
}

// MetricPoint is a single numeric sample. Points are append-only.
type MetricPoint struct {
	ID      int64             `json:"id,omitempty"`
	Name    string            `json:"name"`
	TS      time.Time         `json:"ts"`
	Value   float64           `json:"value"`
	Tags    map[string]string `json:"tags"`
	Service string            `json:"service"`
}

// LogEvent is a single log line emitted by a service.
type LogEvent struct {
	ID      int64          `json:"id,omitempty"`
	TS      time.Time      `json:"ts"`
	Service string         `json:"service"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs"`
}

// Span is one timed operation of a trace.
type Span struct {
	ID         int64          `json:"id,omitempty"`
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   *string        `json:"parent_id"`
	Service    string         `json:"service"`
	Name       string         `json:"name"`
	StartTS    time.Time      `json:"start_ts"`
	DurationMS int64          `json:"duration_ms"`
	Status     string         `json:"status"`
	Tags       map[string]any `json:"tags"`
}

// MetricFilter selects metric points.
type MetricFilter struct {
	Name    string
	Service string
	Tags    map[string]string
	From    time.Time
	To      time.Time
	Limit   int
}

// LogFilter selects log events. Query is a case-insensitive substring of the
// message.
type LogFilter struct {
	Query   string
	Service string
	Level   string
	From    time.Time
	To      time.Time
	Limit   int
}

// SpanFilter selects spans outside of a single trace lookup.
type SpanFilter struct {
	Service       string
	Status        string
	MinDurationMS int64
	From          time.Time
	To            time.Time
	Limit         int
}

// LogCounts is the total and error-level number of log events in a range.
type LogCounts struct {
	Total  int64
	Errors int64
}
