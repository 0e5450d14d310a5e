package slo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

// Input holds the user-supplied attributes of an SLO.
type Input struct {
	Name       string  `json:"name"`
	MonitorID  *int64  `json:"monitor_id"`
	Query      *string `json:"query"`
	Target     float64 `json:"target"`
	WindowDays int     `json:"window_days"`
}

// Status is the point-in-time compliance of an SLO.
type Status struct {
	SLOID        int64     `json:"slo_id"`
	Name         string    `json:"name"`
	Target       float64   `json:"target"`
	WindowDays   int       `json:"window_days"`
	BurnRate     float64   `json:"burn_rate"`
	Status       string    `json:"status"`
	TotalAlerts  int       `json:"total_alerts"`
	FiringAlerts int       `json:"firing_alerts"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
}

var (
	errMissingName   = errors.New("slo name is required")
	errInvalidTarget = errors.New("slo target must be within (0, 1]")
	errInvalidWindow = errors.New("slo window_days must be positive")
)

// IsValidationError reports whether err stems from an invalid SLO definition.
func IsValidationError(err error) bool {
	return errors.Is(err, errMissingName) || errors.Is(err, errInvalidTarget) || errors.Is(err, errInvalidWindow)
}

// Calculator manages SLO definitions and derives their burn rate from the
// alert history of the bound monitor.
type Calculator struct {
	slos     repository.SLORepository
	monitors repository.MonitorRepository
	logger   *slog.Logger
	now      func() time.Time
}

// New returns an SLO calculator.
func New(slos repository.SLORepository, monitors repository.MonitorRepository, logger *slog.Logger) *Calculator {
	return &Calculator{slos: slos, monitors: monitors, logger: logger, now: time.Now}
}

// Create validates and stores an SLO. A bound monitor must exist.
func (c *Calculator) Create(ctx context.Context, input Input) (*domain.SLO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errMissingName
	}
	if !(input.Target > 0 && input.Target <= 1) {
		return nil, errInvalidTarget
	}
	if input.WindowDays <= 0 {
		return nil, errInvalidWindow
	}
	if input.MonitorID != nil {
		if _, err := c.monitors.GetMonitor(ctx, *input.MonitorID); err != nil {
			return nil, err
		}
	}
	var query *string
	if input.Query != nil && strings.TrimSpace(*input.Query) != "" {
		q := strings.TrimSpace(*input.Query)
		query = &q
	}

	slo := &domain.SLO{
		Name:       name,
		MonitorID:  input.MonitorID,
		Query:      query,
		Target:     input.Target,
		WindowDays: input.WindowDays,
	}
	if err := c.slos.CreateSLO(ctx, slo); err != nil {
		return nil, err
	}
	return slo, nil
}

func (c *Calculator) Get(ctx context.Context, id int64) (*domain.SLO, error) {
	return c.slos.GetSLO(ctx, id)
}

func (c *Calculator) List(ctx context.Context) ([]domain.SLO, error) {
	return c.slos.ListSLOs(ctx)
}

func (c *Calculator) Delete(ctx context.Context, id int64) error {
	return c.slos.DeleteSLO(ctx, id)
}

// Status computes the burn rate of an SLO over its trailing window.
func (c *Calculator) Status(ctx context.Context, id int64) (Status, error) {
	slo, err := c.slos.GetSLO(ctx, id)
	if err != nil {
		return Status{}, err
	}

	end := c.now().UTC()
	start := end.Add(-time.Duration(slo.WindowDays) * 24 * time.Hour)
	status := Status{
		SLOID:       slo.ID,
		Name:        slo.Name,
		Target:      slo.Target,
		WindowDays:  slo.WindowDays,
		WindowStart: start,
		WindowEnd:   end,
	}

	if slo.MonitorID != nil {
		alerts, err := c.monitors.ListMonitorAlerts(ctx, *slo.MonitorID, start, end)
		if err != nil {
			return Status{}, err
		}
		status.BurnRate, status.FiringAlerts, status.TotalAlerts = BurnRate(alerts, start, end)
	}
	status.Status = Classify(status.BurnRate, status.TotalAlerts, slo.Target)
	return status, nil
}

// BurnRate returns the share of alerts fired within [start, end] that are
// still firing, with the firing and total counts. No alerts yields zero.
func BurnRate(alerts []domain.Alert, start, end time.Time) (float64, int, int) {
	var firing, total int
	for _, alert := range alerts {
		if alert.FiredAt.Before(start) || alert.FiredAt.After(end) {
			continue
		}
		total++
		if alert.Firing() {
			firing++
		}
	}
	if total == 0 {
		return 0, 0, 0
	}
	return float64(firing) / float64(total), firing, total
}

// Classify maps a burn rate onto an SLO status. Without alerts an SLO is
// always ok.
func Classify(burnRate float64, totalAlerts int, target float64) string {
	if totalAlerts > 0 && burnRate >= 1-target {
		return domain.SLOStatusBreach
	}
	return domain.SLOStatusOK
}
