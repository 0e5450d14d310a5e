package monitor

import (
	"context"
	"errors"
	"math"
	"strings"

	"log/slog"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/dsl"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

// Input holds the user-supplied attributes of a monitor.
type Input struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Query     string  `json:"query"`
	Threshold float64 `json:"threshold"`
	Window    string  `json:"window"`
	Severity  string  `json:"severity"`
}

var (
	errMissingName      = errors.New("monitor name is required")
	errInvalidThreshold = errors.New("monitor threshold must be a finite number")
)

// Service manages monitor definitions and exposes their alerts.
type Service struct {
	repo   repository.MonitorRepository
	logger *slog.Logger
}

// NewService returns a monitor service.
func NewService(repo repository.MonitorRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

// Validate checks a condition against the monitor grammar.
func (s Service) Validate(query string) error {
	return dsl.Validate(query)
}

// Create stores a monitor after validating its query and window.
func (s Service) Create(ctx context.Context, input Input) (*domain.Monitor, error) {
	monitor, err := input.build()
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateMonitor(ctx, &monitor); err != nil {
		return nil, err
	}
	s.logger.Info("monitor created", "monitor_id", monitor.ID, "query", monitor.Query)
	return &monitor, nil
}

// Update replaces a monitor definition. Its alert is kept.
func (s Service) Update(ctx context.Context, id int64, input Input) (*domain.Monitor, error) {
	monitor, err := input.build()
	if err != nil {
		return nil, err
	}
	monitor.ID = id
	if err := s.repo.UpdateMonitor(ctx, &monitor); err != nil {
		return nil, err
	}
	return &monitor, nil
}

func (s Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteMonitor(ctx, id); err != nil {
		return err
	}
	s.logger.Info("monitor deleted", "monitor_id", id)
	return nil
}

func (s Service) Get(ctx context.Context, id int64) (*domain.Monitor, error) {
	return s.repo.GetMonitor(ctx, id)
}

func (s Service) List(ctx context.Context) ([]domain.Monitor, error) {
	return s.repo.ListMonitors(ctx)
}

// Alerts lists the current alert of every monitor that has one.
func (s Service) Alerts(ctx context.Context) ([]domain.Alert, error) {
	return s.repo.ListAlerts(ctx)
}

func (in Input) build() (domain.Monitor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Monitor{}, errMissingName
	}
	if math.IsNaN(in.Threshold) || math.IsInf(in.Threshold, 0) {
		return domain.Monitor{}, errInvalidThreshold
	}
	query := strings.TrimSpace(in.Query)
	parsed, err := dsl.ParseQuery(query)
	if err != nil {
		return domain.Monitor{}, err
	}
	window := strings.TrimSpace(in.Window)
	if _, err := dsl.ParseWindow(window); err != nil {
		return domain.Monitor{}, err
	}

	monitorType := strings.TrimSpace(in.Type)
	if monitorType == "" {
		monitorType = parsed.Source
	}
	severity := strings.TrimSpace(in.Severity)
	if severity == "" {
		severity = "warning"
	}
	return domain.Monitor{
		Name:      name,
		Type:      monitorType,
		Query:     query,
		Threshold: in.Threshold,
		Window:    window,
		Severity:  severity,
	}, nil
}

// IsValidationError reports whether err stems from an invalid monitor definition.
func IsValidationError(err error) bool {
	return errors.Is(err, errMissingName) ||
		errors.Is(err, errInvalidThreshold) ||
		errors.Is(err, dsl.ErrInvalidQuery) ||
		errors.Is(err, dsl.ErrInvalidWindow)
}
