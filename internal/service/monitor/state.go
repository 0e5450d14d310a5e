package monitor

import (
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
)

// Kind names the change a transition applies to a monitor's alert.
type Kind string

const (
	KindNone     Kind = "none"
	KindFired    Kind = "fired"
	KindUpdated  Kind = "updated"
	KindResolved Kind = "resolved"
	KindReopened Kind = "reopened"
)

// Evaluation is the outcome of one monitor evaluation.
type Evaluation struct {
	Value     float64
	Triggered bool
	Threshold float64
	Window    string
}

// Payload renders the evaluation as stored on the alert.
func (e Evaluation) Payload(now time.Time) map[string]any {
	return map[string]any{
		"value":        e.Value,
		"triggered":    e.Triggered,
		"threshold":    e.Threshold,
		"window":       e.Window,
		"evaluated_at": now.UTC().Format(time.RFC3339Nano),
	}
}

// Transition computes the next alert state for a monitor given its current
// alert (nil when it has none). It returns the alert to write and KindNone
// when nothing should be written.
func Transition(current *domain.Alert, eval Evaluation, now time.Time) (*domain.Alert, Kind) {
	now = now.UTC()

	if current == nil {
		if !eval.Triggered {
			return nil, KindNone
		}
		return &domain.Alert{
			Status:  domain.AlertStatusFiring,
			FiredAt: now,
			Payload: eval.Payload(now),
		}, KindFired
	}

	next := *current
	switch {
	case current.Firing() && eval.Triggered:
		next.Payload = eval.Payload(now)
		return &next, KindUpdated
	case current.Firing():
		resolvedAt := now
		next.Status = domain.AlertStatusResolved
		next.ResolvedAt = &resolvedAt
		next.Payload = eval.Payload(now)
		return &next, KindResolved
	case !eval.Triggered:
		return current, KindNone
	default:
		// The row is reused for the new incident; earlier timestamps are lost.
		next.Status = domain.AlertStatusFiring
		next.FiredAt = now
		next.ResolvedAt = nil
		next.Payload = eval.Payload(now)
		return &next, KindReopened
	}
}
