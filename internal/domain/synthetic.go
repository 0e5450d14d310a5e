package domain

import "time"

// SyntheticCheck is a periodic HTTP probe definition.
type SyntheticCheck struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	IntervalSec int    `json:"interval_sec"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// Timeout returns the probe timeout as a duration.
func (c SyntheticCheck) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// SyntheticResult records one probe execution.
type SyntheticResult struct {
	ID         int64     `json:"id"`
	CheckID    int64     `json:"check_id"`
	TS         time.Time `json:"ts"`
	OK         bool      `json:"ok"`
	LatencyMS  int64     `json:"latency_ms"`
	StatusCode *int      `json:"status_code"`
	Error      *string   `json:"error"`
}
