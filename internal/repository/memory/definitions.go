package memory

import (
	"context"
	"sort"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

const defaultResultLimit = 20

func (s *Store) CreateSLO(_ context.Context, slo *domain.SLO) error {
	if slo.Target <= 0 || slo.Target > 1 {
		return invalid("slo target %v outside (0, 1]", slo.Target)
	}
	if slo.WindowDays <= 0 {
		return invalid("slo window_days must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slo.MonitorID != nil {
		if _, ok := s.monitors[*slo.MonitorID]; !ok {
			return repository.ErrNotFound
		}
	}
	slo.ID = s.id()
	s.slos[slo.ID] = cloneSLO(*slo)
	return nil
}

func (s *Store) GetSLO(_ context.Context, sloID int64) (*domain.SLO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slo, ok := s.slos[sloID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneSLO(slo)
	return &out, nil
}

func (s *Store) ListSLOs(context.Context) ([]domain.SLO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slos := make([]domain.SLO, 0, len(s.slos))
	for _, slo := range s.slos {
		slos = append(slos, cloneSLO(slo))
	}
	sort.Slice(slos, func(i, j int) bool { return slos[i].ID < slos[j].ID })
	return slos, nil
}

func (s *Store) DeleteSLO(_ context.Context, sloID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slos[sloID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.slos, sloID)
	return nil
}

func (s *Store) CreateCheck(_ context.Context, check *domain.SyntheticCheck) error {
	if check.IntervalSec <= 0 || check.TimeoutMS <= 0 {
		return invalid("check interval and timeout must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	check.ID = s.id()
	s.checks[check.ID] = *check
	return nil
}

func (s *Store) GetCheck(_ context.Context, checkID int64) (*domain.SyntheticCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	check, ok := s.checks[checkID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &check, nil
}

func (s *Store) ListChecks(context.Context) ([]domain.SyntheticCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checks := make([]domain.SyntheticCheck, 0, len(s.checks))
	for _, c := range s.checks {
		checks = append(checks, c)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].ID < checks[j].ID })
	return checks, nil
}

// DeleteCheck removes a check and its results.
func (s *Store) DeleteCheck(_ context.Context, checkID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checks[checkID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.checks, checkID)
	kept := s.results[:0]
	for _, r := range s.results {
		if r.CheckID != checkID {
			kept = append(kept, r)
		}
	}
	s.results = kept
	return nil
}

func (s *Store) InsertResult(_ context.Context, result *domain.SyntheticResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checks[result.CheckID]; !ok {
		return repository.ErrNotFound
	}
	result.ID = s.id()
	result.TS = result.TS.UTC()
	s.results = append(s.results, *result)
	return nil
}

func (s *Store) ListResults(_ context.Context, checkID int64, limit int) ([]domain.SyntheticResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.SyntheticResult, 0)
	for _, r := range s.results {
		if r.CheckID == checkID {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TS.Equal(results[j].TS) {
			return results[i].ID > results[j].ID
		}
		return results[i].TS.After(results[j].TS)
	})
	if limit = limitOrDefault(limit, defaultResultLimit); len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) CreateIncident(_ context.Context, incident *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident.ID = s.id()
	incident.CreatedAt = incident.CreatedAt.UTC()
	stored := *incident
	stored.ResolvedAt = copyTime(incident.ResolvedAt)
	s.incidents[incident.ID] = stored
	return nil
}

func (s *Store) GetIncident(_ context.Context, incidentID int64) (*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[incidentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	inc.ResolvedAt = copyTime(inc.ResolvedAt)
	return &inc, nil
}

func (s *Store) ListIncidents(context.Context) ([]domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incidents := make([]domain.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		inc.ResolvedAt = copyTime(inc.ResolvedAt)
		incidents = append(incidents, inc)
	}
	sort.Slice(incidents, func(i, j int) bool {
		if incidents[i].CreatedAt.Equal(incidents[j].CreatedAt) {
			return incidents[i].ID > incidents[j].ID
		}
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})
	return incidents, nil
}

func (s *Store) AppendIncidentEvent(_ context.Context, event *domain.IncidentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.incidents[event.IncidentID]; !ok {
		return repository.ErrNotFound
	}
	event.ID = s.id()
	event.TS = event.TS.UTC()
	stored := *event
	stored.Meta = copyAny(event.Meta)
	s.events = append(s.events, stored)
	return nil
}

func (s *Store) ListIncidentEvents(_ context.Context, incidentID int64) ([]domain.IncidentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.IncidentEvent, 0)
	for _, e := range s.events {
		if e.IncidentID == incidentID {
			e.Meta = copyAny(e.Meta)
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].TS.Before(events[j].TS) })
	return events, nil
}

func cloneSLO(slo domain.SLO) domain.SLO {
	if slo.MonitorID != nil {
		id := *slo.MonitorID
		slo.MonitorID = &id
	}
	if slo.Query != nil {
		q := *slo.Query
		slo.Query = &q
	}
	return slo
}
