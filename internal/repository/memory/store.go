// Package memory provides an in-process implementation of the telemetry store.
// It backs the memory store driver and the package tests of the services.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

// Store keeps every entity in slices guarded by one lock. Queries are linear
// scans with in-memory filtering.
type Store struct {
	mu         sync.RWMutex
	serviceEnv string

	nextID int64

	services  map[string]domain.Service
	metrics   []domain.MetricPoint
	logs      []domain.LogEvent
	spans     []domain.Span
	monitors  map[int64]domain.Monitor
	alerts    map[int64]domain.Alert // keyed by monitor id
	slos      map[int64]domain.SLO
	checks    map[int64]domain.SyntheticCheck
	results   []domain.SyntheticResult
	incidents map[int64]domain.Incident
	events    []domain.IncidentEvent
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store. serviceEnv tags services registered by ingestion.
func New(serviceEnv string) *Store {
	if strings.TrimSpace(serviceEnv) == "" {
		serviceEnv = domain.DefaultServiceEnv
	}
	return &Store{
		serviceEnv: serviceEnv,
		services:   make(map[string]domain.Service),
		monitors:   make(map[int64]domain.Monitor),
		alerts:     make(map[int64]domain.Alert),
		slos:       make(map[int64]domain.SLO),
		checks:     make(map[int64]domain.SyntheticCheck),
		incidents:  make(map[int64]domain.Incident),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) ListServices(context.Context) ([]domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// id must be called with the write lock held.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ensureService must be called with the write lock held.
func (s *Store) ensureService(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, ok := s.services[name]; ok {
		return
	}
	s.services[name] = domain.Service{ID: s.id(), Name: name, Env: s.serviceEnv}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repository.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func inRange(ts, from, to time.Time) bool {
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && ts.After(to) {
		return false
	}
	return true
}

func limitOrDefault(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func copyStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyAny(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
