package domain

// SLO statuses.
const (
	SLOStatusOK     = "ok"
	SLOStatusBreach = "breach"
)

// SLO is a service-level objective, optionally bound to a monitor whose alert
// history drives its burn rate.
type SLO struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	MonitorID  *int64  `json:"monitor_id"`
	Query      *string `json:"query"`
	Target     float64 `json:"target"`
	WindowDays int     `json:"window_days"`
}
