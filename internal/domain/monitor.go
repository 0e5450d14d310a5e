package domain

import "time"

// Alert statuses.
const (
	AlertStatusFiring   = "firing"
	AlertStatusResolved = "resolved"
)

// Monitor is a user-defined alerting rule evaluated by the evaluation loop.
type Monitor struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Query     string  `json:"query"`
	Threshold float64 `json:"threshold"`
	Window    string  `json:"window"`
	Severity  string  `json:"severity"`
}

// Alert is the single current alert record of a monitor.
type Alert struct {
	ID         int64          `json:"id"`
	MonitorID  int64          `json:"monitor_id"`
	Status     string         `json:"status"`
	FiredAt    time.Time      `json:"fired_at"`
	ResolvedAt *time.Time     `json:"resolved_at"`
	Payload    map[string]any `json:"payload"`
}

// Firing reports whether the alert is currently firing.
func (a Alert) Firing() bool {
	return a.Status == AlertStatusFiring
}
