package domain

import "time"

// Incident is a manually managed incident record.
type Incident struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

// IncidentEvent is an append-only timeline entry of an incident.
type IncidentEvent struct {
	ID         int64          `json:"id"`
	IncidentID int64          `json:"incident_id"`
	TS         time.Time      `json:"ts"`
	Kind       string         `json:"kind"`
	Message    string         `json:"message"`
	Meta       map[string]any `json:"meta"`
}
