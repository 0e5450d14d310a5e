package postgres

import (
	"context"
	"database/sql"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
)

const incidentColumns = `id, title, severity, status, created_at, resolved_at`

func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	const query = `INSERT INTO incidents (title, severity, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		incident.Title, incident.Severity, incident.Status, incident.CreatedAt.UTC(), timePtrToNil(incident.ResolvedAt),
	).Scan(&incident.ID)
	return translate(err)
}

func (r *Repository) GetIncident(ctx context.Context, incidentID int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	var (
		inc      domain.Incident
		resolved sql.NullTime
	)
	if err := r.pool.QueryRow(ctx, query, incidentID).Scan(
		&inc.ID, &inc.Title, &inc.Severity, &inc.Status, &inc.CreatedAt, &resolved,
	); err != nil {
		return nil, translate(err)
	}
	if resolved.Valid {
		ts := resolved.Time
		inc.ResolvedAt = &ts
	}
	return &inc, nil
}

func (r *Repository) ListIncidents(ctx context.Context) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	incidents := make([]domain.Incident, 0)
	for rows.Next() {
		var (
			inc      domain.Incident
			resolved sql.NullTime
		)
		if err := rows.Scan(&inc.ID, &inc.Title, &inc.Severity, &inc.Status, &inc.CreatedAt, &resolved); err != nil {
			return nil, err
		}
		if resolved.Valid {
			ts := resolved.Time
			inc.ResolvedAt = &ts
		}
		incidents = append(incidents, inc)
	}
	return incidents, translate(rows.Err())
}

// AppendIncidentEvent adds a timeline entry. An unknown incident yields ErrNotFound.
func (r *Repository) AppendIncidentEvent(ctx context.Context, event *domain.IncidentEvent) error {
	const query = `INSERT INTO incident_events (incident_id, ts, kind, message, meta)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		event.IncidentID, event.TS.UTC(), event.Kind, event.Message, anyMap(event.Meta),
	).Scan(&event.ID)
	return translate(err)
}

func (r *Repository) ListIncidentEvents(ctx context.Context, incidentID int64) ([]domain.IncidentEvent, error) {
	const query = `SELECT id, incident_id, ts, kind, message, meta
	FROM incident_events
	WHERE incident_id = $1
	ORDER BY ts ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	events := make([]domain.IncidentEvent, 0)
	for rows.Next() {
		var e domain.IncidentEvent
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.TS, &e.Kind, &e.Message, &e.Meta); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, translate(rows.Err())
}
