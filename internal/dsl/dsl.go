// Package dsl parses monitor conditions such as
//
//	metric:avg(last_5m):cpu.util{service:web}
//	logs:error_rate(last_10m){service:api}
//
// and monitor window strings such as "5m" or "1h".
package dsl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidQuery reports a condition matching neither grammar.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidWindow reports a window that is not <int>m or <int>h.
	ErrInvalidWindow = errors.New("invalid window")
)

// Query sources.
const (
	SourceMetric = "metric"
	SourceLogs   = "logs"
)

// Aggregations.
const (
	AggregationAvg       = "avg"
	AggregationErrorRate = "error_rate"
)

var (
	metricPattern = regexp.MustCompile(`^metric:(avg)\(([^)]+)\):([\w.-]+)\{([^}]*)\}$`)
	logsPattern   = regexp.MustCompile(`^logs:(error_rate)\(([^)]+)\)\{([^}]*)\}$`)
)

// Query is a parsed monitor condition. Window is the token inside the
// aggregation parentheses; evaluation uses the monitor's own window instead.
type Query struct {
	Source        string
	Aggregation   string
	Window        string
	MetricName    string
	ServiceFilter string
	Tags          map[string]string
}

// ParseQuery parses text after trimming surrounding whitespace. The whole
// string must match one of the two grammars.
func ParseQuery(text string) (Query, error) {
	text = strings.TrimSpace(text)

	var (
		q       Query
		tagList string
	)
	if m := metricPattern.FindStringSubmatch(text); m != nil {
		q = Query{Source: SourceMetric, Aggregation: m[1], Window: m[2], MetricName: m[3]}
		tagList = m[4]
	} else if m := logsPattern.FindStringSubmatch(text); m != nil {
		q = Query{Source: SourceLogs, Aggregation: m[1], Window: m[2]}
		tagList = m[3]
	} else {
		return Query{}, fmt.Errorf("%w: %q", ErrInvalidQuery, text)
	}

	q.Tags = parseTags(tagList)
	q.ServiceFilter = q.Tags["service"]
	return q, nil
}

// Validate reports whether text parses as a monitor condition.
func Validate(text string) error {
	_, err := ParseQuery(text)
	return err
}

// ParseWindow converts "<int>m" or "<int>h" into a positive duration.
func ParseWindow(text string) (time.Duration, error) {
	if len(text) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, text)
	}

	var unit time.Duration
	switch text[len(text)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, text)
	}

	digits := text[:len(text)-1]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, text)
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 || n > int64(maxDuration/unit) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, text)
	}
	return time.Duration(n) * unit, nil
}

const maxDuration = time.Duration(1<<63 - 1)

// parseTags keeps the key:value items of a comma separated list. Items
// without a colon are dropped.
func parseTags(list string) map[string]string {
	tags := make(map[string]string)
	if list == "" {
		return tags
	}
	for _, item := range strings.Split(list, ",") {
		key, value, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		tags[key] = value
	}
	return tags
}
