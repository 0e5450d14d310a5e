package incident

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

// StatusOpen is assigned to incidents created without a status.
const StatusOpen = "open"

// Input holds the user-supplied attributes of an incident.
type Input struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
}

// EventInput holds one timeline entry.
type EventInput struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta"`
}

// Detail is an incident with its timeline.
type Detail struct {
	domain.Incident
	Events []domain.IncidentEvent `json:"events"`
}

var (
	errMissingTitle    = errors.New("incident title is required")
	errMissingSeverity = errors.New("incident severity is required")
	errMissingKind     = errors.New("incident event kind is required")
)

// IsValidationError reports whether err stems from invalid incident input.
func IsValidationError(err error) bool {
	return errors.Is(err, errMissingTitle) || errors.Is(err, errMissingSeverity) || errors.Is(err, errMissingKind)
}

type Service struct {
	repo   repository.IncidentRepository
	logger *slog.Logger
	now    func() time.Time
}

func New(repo repository.IncidentRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Create(ctx context.Context, input Input) (*domain.Incident, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errMissingTitle
	}
	severity := strings.TrimSpace(input.Severity)
	if severity == "" {
		return nil, errMissingSeverity
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = StatusOpen
	}

	incident := &domain.Incident{
		Title:     title,
		Severity:  severity,
		Status:    status,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, err
	}
	s.logger.Info("incident opened", "incident_id", incident.ID, "severity", severity)
	return incident, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Incident, error) {
	return s.repo.ListIncidents(ctx)
}

// Get returns an incident with its events in timeline order.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	events, err := s.repo.ListIncidentEvents(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if events == nil {
		events = []domain.IncidentEvent{}
	}
	return Detail{Incident: *incident, Events: events}, nil
}

// AppendEvent adds a timeline entry stamped with the current time.
func (s *Service) AppendEvent(ctx context.Context, incidentID int64, input EventInput) (*domain.IncidentEvent, error) {
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		return nil, errMissingKind
	}
	meta := input.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	event := &domain.IncidentEvent{
		IncidentID: incidentID,
		TS:         s.now().UTC(),
		Kind:       kind,
		Message:    input.Message,
		Meta:       meta,
	}
	if err := s.repo.AppendIncidentEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}
