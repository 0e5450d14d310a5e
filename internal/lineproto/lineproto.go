// Package lineproto decodes the compact statsd-style metric line format
//
//	<name>:<value>|<type>[|#<tag>,<tag>,...]
//
// into metric points. Tags are key:value pairs or bare flags.
package lineproto

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
)

// ErrMalformedLine is matched by every decoding failure.
var ErrMalformedLine = errors.New("malformed line")

// FlagValue is the value stored for a bare tag flag.
const FlagValue = "true"

// MalformedLineError identifies the rejected line. Number is the 1-based line
// number within a batch and zero for a single decoded line.
type MalformedLineError struct {
	Line   string
	Number int
	Reason string
}

func (e *MalformedLineError) Error() string {
	if e.Number > 0 {
		return fmt.Sprintf("malformed line %d (%q): %s", e.Number, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed line %q: %s", e.Line, e.Reason)
}

func (e *MalformedLineError) Is(target error) bool {
	return target == ErrMalformedLine
}

// Decode parses one line. The point is stamped with now and attributed to the
// service tag, or to domain.UnknownService without one.
func Decode(line string, now time.Time) (domain.MetricPoint, error) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return domain.MetricPoint{}, malformed(line, "missing ':' separator")
	}
	if strings.TrimSpace(name) == "" {
		return domain.MetricPoint{}, malformed(line, "empty metric name")
	}
	if !strings.Contains(rest, "|") {
		return domain.MetricPoint{}, malformed(line, "missing '|' separator")
	}

	sections := strings.Split(rest, "|")
	value, err := strconv.ParseFloat(strings.TrimSpace(sections[0]), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return domain.MetricPoint{}, malformed(line, "non-numeric value")
	}

	tags := make(map[string]string)
	for _, section := range sections[1:] {
		list, ok := strings.CutPrefix(section, "#")
		if !ok {
			continue
		}
		for _, item := range strings.Split(list, ",") {
			if item == "" {
				continue
			}
			if key, val, ok := strings.Cut(item, ":"); ok {
				tags[key] = val
			} else {
				tags[item] = FlagValue
			}
		}
	}

	service := tags["service"]
	if service == "" {
		service = domain.UnknownService
	}
	return domain.MetricPoint{
		Name:    name,
		TS:      now.UTC(),
		Value:   value,
		Tags:    tags,
		Service: service,
	}, nil
}

// DecodeBatch decodes a newline separated payload. Blank lines are skipped.
// The first malformed line rejects the whole payload.
func DecodeBatch(payload string, now time.Time) ([]domain.MetricPoint, error) {
	lines := strings.Split(payload, "\n")
	points := make([]domain.MetricPoint, 0, len(lines))
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		point, err := Decode(line, now)
		if err != nil {
			var lineErr *MalformedLineError
			if errors.As(err, &lineErr) {
				lineErr.Number = i + 1
			}
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}

// Encode renders a point as a gauge line with tags sorted by key.
func Encode(point domain.MetricPoint) string {
	var b strings.Builder
	b.WriteString(point.Name)
	b.WriteByte(':')
	b.WriteString(strconv.FormatFloat(point.Value, 'g', -1, 64))
	b.WriteString("|g")
	if len(point.Tags) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(point.Tags))
	for k := range point.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("|#")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(point.Tags[k])
	}
	return b.String()
}

func malformed(line, reason string) error {
	return &MalformedLineError{Line: line, Reason: reason}
}
