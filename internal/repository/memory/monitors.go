package memory

import (
	"context"
	"sort"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

func (s *Store) CreateMonitor(_ context.Context, monitor *domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitor.ID = s.id()
	s.monitors[monitor.ID] = *monitor
	return nil
}

func (s *Store) UpdateMonitor(_ context.Context, monitor *domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.monitors[monitor.ID]; !ok {
		return repository.ErrNotFound
	}
	s.monitors[monitor.ID] = *monitor
	return nil
}

// DeleteMonitor removes the monitor and its alert and unbinds SLOs pointing at it.
func (s *Store) DeleteMonitor(_ context.Context, monitorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.monitors[monitorID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.monitors, monitorID)
	delete(s.alerts, monitorID)
	for id, slo := range s.slos {
		if slo.MonitorID != nil && *slo.MonitorID == monitorID {
			slo.MonitorID = nil
			s.slos[id] = slo
		}
	}
	return nil
}

func (s *Store) GetMonitor(_ context.Context, monitorID int64) (*domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	monitor, ok := s.monitors[monitorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &monitor, nil
}

func (s *Store) ListMonitors(context.Context) ([]domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	monitors := make([]domain.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		monitors = append(monitors, m)
	}
	sort.Slice(monitors, func(i, j int) bool { return monitors[i].ID < monitors[j].ID })
	return monitors, nil
}

// UpsertAlert holds the write lock for the lookup and the write.
func (s *Store) UpsertAlert(_ context.Context, monitorID int64, fn repository.AlertTransitionFunc) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *domain.Alert
	if existing, ok := s.alerts[monitorID]; ok {
		current = cloneAlert(existing)
	}

	next, changed := fn(current)
	if !changed || next == nil {
		return current, nil
	}
	if _, ok := s.monitors[monitorID]; !ok {
		return nil, repository.ErrNotFound
	}
	if next.Status != domain.AlertStatusFiring && next.Status != domain.AlertStatusResolved {
		return nil, invalid("alert status %q", next.Status)
	}

	stored := cloneAlert(*next)
	stored.MonitorID = monitorID
	if current == nil {
		stored.ID = s.id()
	} else {
		stored.ID = current.ID
	}
	s.alerts[monitorID] = *stored
	return cloneAlert(*stored), nil
}

func (s *Store) ListAlerts(context.Context) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]domain.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		alerts = append(alerts, *cloneAlert(a))
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].FiredAt.Equal(alerts[j].FiredAt) {
			return alerts[i].ID > alerts[j].ID
		}
		return alerts[i].FiredAt.After(alerts[j].FiredAt)
	})
	return alerts, nil
}

func (s *Store) ListMonitorAlerts(_ context.Context, monitorID int64, firedFrom, firedTo time.Time) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]domain.Alert, 0, 1)
	if a, ok := s.alerts[monitorID]; ok {
		if !a.FiredAt.Before(firedFrom) && !a.FiredAt.After(firedTo) {
			alerts = append(alerts, *cloneAlert(a))
		}
	}
	return alerts, nil
}

func cloneAlert(a domain.Alert) *domain.Alert {
	a.Payload = copyAny(a.Payload)
	a.ResolvedAt = copyTime(a.ResolvedAt)
	return &a
}
