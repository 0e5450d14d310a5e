package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

const monitorColumns = `id, name, type, query, threshold, time_window, severity`

// CreateMonitor inserts a monitor and assigns its id.
func (r *Repository) CreateMonitor(ctx context.Context, monitor *domain.Monitor) error {
	const query = `INSERT INTO monitors (name, type, query, threshold, time_window, severity)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		monitor.Name, monitor.Type, monitor.Query, monitor.Threshold, monitor.Window, monitor.Severity,
	).Scan(&monitor.ID)
	return translate(err)
}

// UpdateMonitor replaces every mutable field of an existing monitor.
func (r *Repository) UpdateMonitor(ctx context.Context, monitor *domain.Monitor) error {
	const query = `UPDATE monitors
	SET name = $2, type = $3, query = $4, threshold = $5, time_window = $6, severity = $7
	WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		monitor.ID, monitor.Name, monitor.Type, monitor.Query, monitor.Threshold, monitor.Window, monitor.Severity,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteMonitor removes a monitor together with its alert.
func (r *Repository) DeleteMonitor(ctx context.Context, monitorID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, monitorID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) GetMonitor(ctx context.Context, monitorID int64) (*domain.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1`
	var m domain.Monitor
	if err := r.pool.QueryRow(ctx, query, monitorID).Scan(
		&m.ID, &m.Name, &m.Type, &m.Query, &m.Threshold, &m.Window, &m.Severity,
	); err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *Repository) ListMonitors(ctx context.Context) ([]domain.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	monitors := make([]domain.Monitor, 0)
	for rows.Next() {
		var m domain.Monitor
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.Query, &m.Threshold, &m.Window, &m.Severity); err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, translate(rows.Err())
}

const alertColumns = `id, monitor_id, status, fired_at, resolved_at, payload`

// UpsertAlert locks the alert row of a monitor, if any, and writes the state
// returned by fn within the same transaction.
func (r *Repository) UpsertAlert(ctx context.Context, monitorID int64, fn repository.AlertTransitionFunc) (*domain.Alert, error) {
	var result *domain.Alert
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + alertColumns + ` FROM alerts WHERE monitor_id = $1 FOR UPDATE`
		current, err := scanAlert(tx.QueryRow(ctx, query, monitorID))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		next, changed := fn(current)
		if !changed || next == nil {
			result = current
			return nil
		}
		next.MonitorID = monitorID

		if current == nil {
			const insert = `INSERT INTO alerts (monitor_id, status, fired_at, resolved_at, payload)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (monitor_id) DO UPDATE
				SET status = EXCLUDED.status, fired_at = EXCLUDED.fired_at,
					resolved_at = EXCLUDED.resolved_at, payload = EXCLUDED.payload
				RETURNING id`
			if err := tx.QueryRow(ctx, insert,
				monitorID, next.Status, next.FiredAt.UTC(), timePtrToNil(next.ResolvedAt), anyMap(next.Payload),
			).Scan(&next.ID); err != nil {
				return translate(err)
			}
		} else {
			next.ID = current.ID
			const update = `UPDATE alerts
			SET status = $2, fired_at = $3, resolved_at = $4, payload = $5
			WHERE id = $1`
			if _, err := tx.Exec(ctx, update,
				next.ID, next.Status, next.FiredAt.UTC(), timePtrToNil(next.ResolvedAt), anyMap(next.Payload),
			); err != nil {
				return translate(err)
			}
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListAlerts returns every alert, most recently fired first.
func (r *Repository) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY fired_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	return collectAlerts(rows)
}

// ListMonitorAlerts returns the alerts of a monitor fired within [firedFrom, firedTo].
func (r *Repository) ListMonitorAlerts(ctx context.Context, monitorID int64, firedFrom, firedTo time.Time) ([]domain.Alert, error) {
	query := `SELECT ` + alertColumns + `
	FROM alerts
	WHERE monitor_id = $1 AND fired_at >= $2 AND fired_at <= $3
	ORDER BY fired_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, monitorID, firedFrom.UTC(), firedTo.UTC())
	if err != nil {
		return nil, translate(err)
	}
	return collectAlerts(rows)
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var (
		a        domain.Alert
		resolved sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.MonitorID, &a.Status, &a.FiredAt, &resolved, &a.Payload); err != nil {
		return nil, translate(err)
	}
	if resolved.Valid {
		ts := resolved.Time
		a.ResolvedAt = &ts
	}
	return &a, nil
}

func collectAlerts(rows pgx.Rows) ([]domain.Alert, error) {
	defer rows.Close()
	alerts := make([]domain.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, translate(rows.Err())
}
