package postgres

import (
	"context"
	"database/sql"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

const (
	checkColumns       = `id, name, type, url, interval_sec, timeout_ms`
	defaultResultLimit = 20
)

func (r *Repository) CreateCheck(ctx context.Context, check *domain.SyntheticCheck) error {
	const query = `INSERT INTO synthetic_checks (name, type, url, interval_sec, timeout_ms)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		check.Name, check.Type, check.URL, check.IntervalSec, check.TimeoutMS,
	).Scan(&check.ID)
	return translate(err)
}

func (r *Repository) GetCheck(ctx context.Context, checkID int64) (*domain.SyntheticCheck, error) {
	query := `SELECT ` + checkColumns + ` FROM synthetic_checks WHERE id = $1`
	var c domain.SyntheticCheck
	if err := r.pool.QueryRow(ctx, query, checkID).Scan(
		&c.ID, &c.Name, &c.Type, &c.URL, &c.IntervalSec, &c.TimeoutMS,
	); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *Repository) ListChecks(ctx context.Context) ([]domain.SyntheticCheck, error) {
	query := `SELECT ` + checkColumns + ` FROM synthetic_checks ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	checks := make([]domain.SyntheticCheck, 0)
	for rows.Next() {
		var c domain.SyntheticCheck
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.URL, &c.IntervalSec, &c.TimeoutMS); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, translate(rows.Err())
}

func (r *Repository) DeleteCheck(ctx context.Context, checkID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM synthetic_checks WHERE id = $1`, checkID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// InsertResult appends a probe result. A result for a deleted check yields ErrNotFound.
func (r *Repository) InsertResult(ctx context.Context, result *domain.SyntheticResult) error {
	const query = `INSERT INTO synthetic_results (check_id, ts, ok, latency_ms, status_code, error)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		result.CheckID, result.TS.UTC(), result.OK, result.LatencyMS,
		intPtrToNil(result.StatusCode), stringPtrToNil(result.Error),
	).Scan(&result.ID)
	return translate(err)
}

// ListResults returns the newest results of a check.
func (r *Repository) ListResults(ctx context.Context, checkID int64, limit int) ([]domain.SyntheticResult, error) {
	const query = `SELECT id, check_id, ts, ok, latency_ms, status_code, error
	FROM synthetic_results
	WHERE check_id = $1
	ORDER BY ts DESC, id DESC
	LIMIT $2`
	rows, err := r.pool.Query(ctx, query, checkID, limitOrDefault(limit, defaultResultLimit))
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	results := make([]domain.SyntheticResult, 0)
	for rows.Next() {
		var (
			res     domain.SyntheticResult
			status  sql.NullInt32
			message sql.NullString
		)
		if err := rows.Scan(&res.ID, &res.CheckID, &res.TS, &res.OK, &res.LatencyMS, &status, &message); err != nil {
			return nil, err
		}
		if status.Valid {
			code := int(status.Int32)
			res.StatusCode = &code
		}
		if message.Valid {
			text := message.String
			res.Error = &text
		}
		results = append(results, res)
	}
	return results, translate(rows.Err())
}
