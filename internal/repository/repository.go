package repository

import (
	"context"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
)

// ServiceRepository lists services registered by ingestion.
type ServiceRepository interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
}

// TelemetryRepository persists and reads metrics, logs and spans. Each insert
// stores its batch and registers unseen services in a single transaction.
type TelemetryRepository interface {
	InsertMetricPoints(ctx context.Context, points []domain.MetricPoint) error
	InsertLogEvents(ctx context.Context, events []domain.LogEvent) ([]domain.LogEvent, error)
	InsertSpans(ctx context.Context, spans []domain.Span) error

	ListMetricPoints(ctx context.Context, filter domain.MetricFilter) ([]domain.MetricPoint, error)
	AverageMetric(ctx context.Context, name, service string, from, to time.Time) (float64, int64, error)
	SearchLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEvent, error)
	CountLogs(ctx context.Context, service string, from, to time.Time) (domain.LogCounts, error)
	ListTraceSpans(ctx context.Context, traceID string) ([]domain.Span, error)
	SearchSpans(ctx context.Context, filter domain.SpanFilter) ([]domain.Span, error)
}

// AlertTransitionFunc decides the next state of a monitor's alert. current is
// nil when the monitor has no alert row. Returning changed=false leaves the
// store untouched; otherwise next is inserted or written over current.
type AlertTransitionFunc func(current *domain.Alert) (next *domain.Alert, changed bool)

// MonitorRepository persists monitors and their single current alert.
type MonitorRepository interface {
	CreateMonitor(ctx context.Context, monitor *domain.Monitor) error
	UpdateMonitor(ctx context.Context, monitor *domain.Monitor) error
	DeleteMonitor(ctx context.Context, monitorID int64) error
	GetMonitor(ctx context.Context, monitorID int64) (*domain.Monitor, error)
	ListMonitors(ctx context.Context) ([]domain.Monitor, error)

	// UpsertAlert looks up the alert of monitorID and applies fn to it inside
	// one transaction. It returns the resulting alert, or nil when none exists.
	UpsertAlert(ctx context.Context, monitorID int64, fn AlertTransitionFunc) (*domain.Alert, error)
	ListAlerts(ctx context.Context) ([]domain.Alert, error)
	ListMonitorAlerts(ctx context.Context, monitorID int64, firedFrom, firedTo time.Time) ([]domain.Alert, error)
}

// SLORepository persists SLO definitions.
type SLORepository interface {
	CreateSLO(ctx context.Context, slo *domain.SLO) error
	GetSLO(ctx context.Context, sloID int64) (*domain.SLO, error)
	ListSLOs(ctx context.Context) ([]domain.SLO, error)
	DeleteSLO(ctx context.Context, sloID int64) error
}

// SyntheticRepository persists synthetic checks and their append-only results.
type SyntheticRepository interface {
	CreateCheck(ctx context.Context, check *domain.SyntheticCheck) error
	GetCheck(ctx context.Context, checkID int64) (*domain.SyntheticCheck, error)
	ListChecks(ctx context.Context) ([]domain.SyntheticCheck, error)
	DeleteCheck(ctx context.Context, checkID int64) error
	InsertResult(ctx context.Context, result *domain.SyntheticResult) error
	ListResults(ctx context.Context, checkID int64, limit int) ([]domain.SyntheticResult, error)
}

// IncidentRepository persists incidents and their timeline.
type IncidentRepository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, incidentID int64) (*domain.Incident, error)
	ListIncidents(ctx context.Context) ([]domain.Incident, error)
	AppendIncidentEvent(ctx context.Context, event *domain.IncidentEvent) error
	ListIncidentEvents(ctx context.Context, incidentID int64) ([]domain.IncidentEvent, error)
}

// Store is the full telemetry store used by the API process.
type Store interface {
	ServiceRepository
	TelemetryRepository
	MonitorRepository
	SLORepository
	SyntheticRepository
	IncidentRepository
	Ping(ctx context.Context) error
}
