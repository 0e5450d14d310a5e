package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

// Repository implements the telemetry store on PostgreSQL.
type Repository struct {
	pool       *pgxpool.Pool
	serviceEnv string
}

// New constructs a Repository. serviceEnv tags services registered by ingestion.
func New(pool *pgxpool.Pool, serviceEnv string) *Repository {
	if strings.TrimSpace(serviceEnv) == "" {
		serviceEnv = domain.DefaultServiceEnv
	}
	return &Repository{pool: pool, serviceEnv: serviceEnv}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.Store = (*Repository)(nil)
)

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return translate(r.pool.Ping(ctx))
}

// ListServices returns every registered service ordered by name.
func (r *Repository) ListServices(ctx context.Context) ([]domain.Service, error) {
	const query = `SELECT id, name, env FROM services ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Env); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, translate(rows.Err())
}

// ensureServices registers each distinct name once inside tx.
func (r *Repository) ensureServices(ctx context.Context, tx pgx.Tx, names []string) error {
	distinct := distinctNames(names)
	if len(distinct) == 0 {
		return nil
	}
	const query = `INSERT INTO services (name, env) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	batch := &pgx.Batch{}
	for _, name := range distinct {
		batch.Queue(query, name, r.serviceEnv)
	}
	br := tx.SendBatch(ctx, batch)
	for range distinct {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return translate(err)
		}
	}
	return translate(br.Close())
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return translate(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return translate(tx.Commit(ctx))
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return repository.ErrNotFound
		case "23505", "23514", "22P02", "22007", "22008":
			return fmt.Errorf("%w: %s", repository.ErrInvalidArgument, pgErr.Message)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

func distinctNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func nilTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func timePtrToNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func intPtrToNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func int64PtrToNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtrToNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func limitOrDefault(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func stringTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return tags
}

func anyMap(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}
	return values
}
