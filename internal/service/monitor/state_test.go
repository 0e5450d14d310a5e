package monitor

import (
	"testing"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
)

func TestTransition(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	resolvedAt := earlier.Add(time.Minute)
	now := earlier.Add(time.Hour)

	firing := &domain.Alert{ID: 7, MonitorID: 3, Status: domain.AlertStatusFiring, FiredAt: earlier}
	resolved := &domain.Alert{ID: 7, MonitorID: 3, Status: domain.AlertStatusResolved, FiredAt: earlier, ResolvedAt: &resolvedAt}

	triggered := Evaluation{Value: 0.9, Triggered: true, Threshold: 0.8, Window: "5m"}
	calm := Evaluation{Value: 0.1, Triggered: false, Threshold: 0.8, Window: "5m"}

	cases := []struct {
		name       string
		current    *domain.Alert
		eval       Evaluation
		wantKind   Kind
		wantStatus string
		wantFired  time.Time
		wantResolv *time.Time
	}{
		{name: "no row not triggered", current: nil, eval: calm, wantKind: KindNone},
		{name: "no row triggered", current: nil, eval: triggered, wantKind: KindFired, wantStatus: domain.AlertStatusFiring, wantFired: now},
		{name: "firing still triggered", current: firing, eval: triggered, wantKind: KindUpdated, wantStatus: domain.AlertStatusFiring, wantFired: earlier},
		{name: "firing recovers", current: firing, eval: calm, wantKind: KindResolved, wantStatus: domain.AlertStatusResolved, wantFired: earlier, wantResolv: &now},
		{name: "resolved stays calm", current: resolved, eval: calm, wantKind: KindNone, wantStatus: domain.AlertStatusResolved, wantFired: earlier, wantResolv: &resolvedAt},
		{name: "resolved re-fires", current: resolved, eval: triggered, wantKind: KindReopened, wantStatus: domain.AlertStatusFiring, wantFired: now},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, kind := Transition(tc.current, tc.eval, now)
			if kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", kind, tc.wantKind)
			}
			if tc.wantStatus == "" {
				if next != nil {
					t.Fatalf("expected no alert, got %+v", next)
				}
				return
			}
			if next == nil {
				t.Fatalf("expected alert, got nil")
			}
			if next.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", next.Status, tc.wantStatus)
			}
			if !next.FiredAt.Equal(tc.wantFired) {
				t.Fatalf("fired_at = %s, want %s", next.FiredAt, tc.wantFired)
			}
			switch {
			case tc.wantResolv == nil && next.ResolvedAt != nil:
				t.Fatalf("resolved_at = %s, want nil", next.ResolvedAt)
			case tc.wantResolv != nil && (next.ResolvedAt == nil || !next.ResolvedAt.Equal(*tc.wantResolv)):
				t.Fatalf("resolved_at = %v, want %s", next.ResolvedAt, tc.wantResolv)
			}
			if tc.current != nil && next.ID != tc.current.ID {
				t.Fatalf("alert identity changed: %d -> %d", tc.current.ID, next.ID)
			}
		})
	}
}

func TestTransitionDoesNotMutateCurrent(t *testing.T) {
	now := time.Now()
	current := &domain.Alert{ID: 1, Status: domain.AlertStatusFiring, FiredAt: now.Add(-time.Minute)}
	_, _ = Transition(current, Evaluation{Triggered: false}, now)
	if current.Status != domain.AlertStatusFiring || current.ResolvedAt != nil {
		t.Fatalf("current alert mutated: %+v", current)
	}
}

func TestEvaluationPayload(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := Evaluation{Value: 2, Triggered: true, Threshold: 1, Window: "5m"}.Payload(now)
	for _, key := range []string{"value", "triggered", "threshold", "window", "evaluated_at"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("payload missing %q: %v", key, payload)
		}
	}
	if payload["evaluated_at"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("evaluated_at = %v", payload["evaluated_at"])
	}
}
