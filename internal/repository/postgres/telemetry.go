package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
)

const (
	defaultMetricLimit = 10000
	defaultLogLimit    = 100
	defaultSpanLimit   = 500
)

// InsertMetricPoints stores a batch of metric points and registers their services.
func (r *Repository) InsertMetricPoints(ctx context.Context, points []domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}
	names := make([]string, 0, len(points))
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		names = append(names, p.Service)
		rows = append(rows, []any{p.Name, p.TS.UTC(), p.Value, stringTags(p.Tags), p.Service})
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.ensureServices(ctx, tx, names); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"metric_points"},
			[]string{"name", "ts", "value", "tags", "service"},
			pgx.CopyFromRows(rows),
		)
		return translate(err)
	})
}

// InsertLogEvents stores a batch of log events and returns them with their ids.
func (r *Repository) InsertLogEvents(ctx context.Context, events []domain.LogEvent) ([]domain.LogEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	const query = `INSERT INTO log_events (ts, service, level, message, attrs)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	stored := make([]domain.LogEvent, len(events))
	copy(stored, events)
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Service)
	}
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.ensureServices(ctx, tx, names); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, e := range stored {
			batch.Queue(query, e.TS.UTC(), e.Service, e.Level, e.Message, anyMap(e.Attrs))
		}
		br := tx.SendBatch(ctx, batch)
		for i := range stored {
			if err := br.QueryRow().Scan(&stored[i].ID); err != nil {
				br.Close()
				return translate(err)
			}
		}
		return translate(br.Close())
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// InsertSpans stores a batch of spans and registers their services.
func (r *Repository) InsertSpans(ctx context.Context, spans []domain.Span) error {
	if len(spans) == 0 {
		return nil
	}
	names := make([]string, 0, len(spans))
	rows := make([][]any, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Service)
		rows = append(rows, []any{
			s.TraceID, s.SpanID, stringPtrToNil(s.ParentID), s.Service, s.Name,
			s.StartTS.UTC(), s.DurationMS, s.Status, anyMap(s.Tags),
		})
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.ensureServices(ctx, tx, names); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"spans"},
			[]string{"trace_id", "span_id", "parent_id", "service", "name", "start_ts", "duration_ms", "status", "tags"},
			pgx.CopyFromRows(rows),
		)
		return translate(err)
	})
}

// ListMetricPoints returns points matching the filter ordered by timestamp.
func (r *Repository) ListMetricPoints(ctx context.Context, filter domain.MetricFilter) ([]domain.MetricPoint, error) {
	const query = `SELECT id, name, ts, value, tags, service
	FROM metric_points
	WHERE name = $1
		AND ($2 = '' OR service = $2)
		AND ($3::timestamptz IS NULL OR ts >= $3)
		AND ($4::timestamptz IS NULL OR ts <= $4)
		AND tags @> $5::jsonb
	ORDER BY ts ASC, id ASC
	LIMIT $6`
	rows, err := r.pool.Query(ctx, query,
		filter.Name,
		strings.TrimSpace(filter.Service),
		nilTime(filter.From),
		nilTime(filter.To),
		stringTags(filter.Tags),
		limitOrDefault(filter.Limit, defaultMetricLimit),
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	points := make([]domain.MetricPoint, 0)
	for rows.Next() {
		var p domain.MetricPoint
		if err := rows.Scan(&p.ID, &p.Name, &p.TS, &p.Value, &p.Tags, &p.Service); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, translate(rows.Err())
}

// AverageMetric returns the mean value and point count of a metric in [from, to].
func (r *Repository) AverageMetric(ctx context.Context, name, service string, from, to time.Time) (float64, int64, error) {
	const query = `SELECT AVG(value), COUNT(1)
	FROM metric_points
	WHERE name = $1 AND ($2 = '' OR service = $2) AND ts >= $3 AND ts <= $4`
	var (
		avg   sql.NullFloat64
		count int64
	)
	if err := r.pool.QueryRow(ctx, query, name, strings.TrimSpace(service), from.UTC(), to.UTC()).Scan(&avg, &count); err != nil {
		return 0, 0, translate(err)
	}
	if !avg.Valid {
		return 0, count, nil
	}
	return avg.Float64, count, nil
}

// SearchLogs returns log events matching the filter, newest first.
func (r *Repository) SearchLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEvent, error) {
	const query = `SELECT id, ts, service, level, message, attrs
	FROM log_events
	WHERE ($1 = '' OR service = $1)
		AND ($2 = '' OR lower(level) = lower($2))
		AND ($3::timestamptz IS NULL OR ts >= $3)
		AND ($4::timestamptz IS NULL OR ts <= $4)
		AND ($5 = '' OR position(lower($5) in lower(message)) > 0)
	ORDER BY ts DESC, id DESC
	LIMIT $6`
	rows, err := r.pool.Query(ctx, query,
		strings.TrimSpace(filter.Service),
		strings.TrimSpace(filter.Level),
		nilTime(filter.From),
		nilTime(filter.To),
		filter.Query,
		limitOrDefault(filter.Limit, defaultLogLimit),
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	events := make([]domain.LogEvent, 0)
	for rows.Next() {
		var e domain.LogEvent
		if err := rows.Scan(&e.ID, &e.TS, &e.Service, &e.Level, &e.Message, &e.Attrs); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, translate(rows.Err())
}

// CountLogs returns the number of log events and error-level events in [from, to].
func (r *Repository) CountLogs(ctx context.Context, service string, from, to time.Time) (domain.LogCounts, error) {
	const query = `SELECT COUNT(1), COUNT(1) FILTER (WHERE lower(level) = 'error')
	FROM log_events
	WHERE ($1 = '' OR service = $1) AND ts >= $2 AND ts <= $3`
	var counts domain.LogCounts
	if err := r.pool.QueryRow(ctx, query, strings.TrimSpace(service), from.UTC(), to.UTC()).Scan(&counts.Total, &counts.Errors); err != nil {
		return domain.LogCounts{}, translate(err)
	}
	return counts, nil
}

const spanColumns = `id, trace_id, span_id, parent_id, service, name, start_ts, duration_ms, status, tags`

// ListTraceSpans returns the spans of a trace ordered by start time.
func (r *Repository) ListTraceSpans(ctx context.Context, traceID string) ([]domain.Span, error) {
	query := `SELECT ` + spanColumns + ` FROM spans WHERE trace_id = $1 ORDER BY start_ts ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, traceID)
	if err != nil {
		return nil, translate(err)
	}
	return collectSpans(rows)
}

// SearchSpans returns spans matching the filter, most recent first.
func (r *Repository) SearchSpans(ctx context.Context, filter domain.SpanFilter) ([]domain.Span, error) {
	query := `SELECT ` + spanColumns + `
	FROM spans
	WHERE ($1 = '' OR service = $1)
		AND ($2 = '' OR status = $2)
		AND duration_ms >= $3
		AND ($4::timestamptz IS NULL OR start_ts >= $4)
		AND ($5::timestamptz IS NULL OR start_ts <= $5)
	ORDER BY start_ts DESC, id DESC
	LIMIT $6`
	rows, err := r.pool.Query(ctx, query,
		strings.TrimSpace(filter.Service),
		strings.TrimSpace(filter.Status),
		filter.MinDurationMS,
		nilTime(filter.From),
		nilTime(filter.To),
		limitOrDefault(filter.Limit, defaultSpanLimit),
	)
	if err != nil {
		return nil, translate(err)
	}
	return collectSpans(rows)
}

func collectSpans(rows pgx.Rows) ([]domain.Span, error) {
	defer rows.Close()
	spans := make([]domain.Span, 0)
	for rows.Next() {
		var (
			s      domain.Span
			parent sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.TraceID, &s.SpanID, &parent, &s.Service, &s.Name, &s.StartTS, &s.DurationMS, &s.Status, &s.Tags); err != nil {
			return nil, err
		}
		if parent.Valid {
			value := parent.String
			s.ParentID = &value
		}
		spans = append(spans, s)
	}
	return spans, translate(rows.Err())
}
