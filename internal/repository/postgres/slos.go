package postgres

import (
	"context"
	"database/sql"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

const sloColumns = `id, name, monitor_id, query, target, window_days`

func (r *Repository) CreateSLO(ctx context.Context, slo *domain.SLO) error {
	const query = `INSERT INTO slos (name, monitor_id, query, target, window_days)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		slo.Name, int64PtrToNil(slo.MonitorID), stringPtrToNil(slo.Query), slo.Target, slo.WindowDays,
	).Scan(&slo.ID)
	return translate(err)
}

func (r *Repository) GetSLO(ctx context.Context, sloID int64) (*domain.SLO, error) {
	query := `SELECT ` + sloColumns + ` FROM slos WHERE id = $1`
	var (
		s       domain.SLO
		monitor sql.NullInt64
		text    sql.NullString
	)
	if err := r.pool.QueryRow(ctx, query, sloID).Scan(&s.ID, &s.Name, &monitor, &text, &s.Target, &s.WindowDays); err != nil {
		return nil, translate(err)
	}
	applySLONullables(&s, monitor, text)
	return &s, nil
}

func (r *Repository) ListSLOs(ctx context.Context) ([]domain.SLO, error) {
	query := `SELECT ` + sloColumns + ` FROM slos ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	slos := make([]domain.SLO, 0)
	for rows.Next() {
		var (
			s       domain.SLO
			monitor sql.NullInt64
			text    sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &monitor, &text, &s.Target, &s.WindowDays); err != nil {
			return nil, err
		}
		applySLONullables(&s, monitor, text)
		slos = append(slos, s)
	}
	return slos, translate(rows.Err())
}

func (r *Repository) DeleteSLO(ctx context.Context, sloID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM slos WHERE id = $1`, sloID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func applySLONullables(s *domain.SLO, monitor sql.NullInt64, text sql.NullString) {
	if monitor.Valid {
		id := monitor.Int64
		s.MonitorID = &id
	}
	if text.Valid {
		q := text.String
		s.Query = &q
	}
}
