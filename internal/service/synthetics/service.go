package synthetics

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

// CheckTypeHTTP is the only probe type.
const CheckTypeHTTP = "http"

// Input holds the user-supplied attributes of a check.
type Input struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	IntervalSec int    `json:"interval_sec"`
	TimeoutMS   int    `json:"timeout_ms"`
}

var (
	errMissingName     = errors.New("check name is required")
	errInvalidURL      = errors.New("check url must be an absolute http or https url")
	errInvalidType     = errors.New("check type must be http")
	errInvalidInterval = errors.New("check interval_sec must be positive")
	errInvalidTimeout  = errors.New("check timeout_ms must be positive")
)

// IsValidationError reports whether err stems from an invalid check definition.
func IsValidationError(err error) bool {
	for _, target := range []error{errMissingName, errInvalidURL, errInvalidType, errInvalidInterval, errInvalidTimeout} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Service manages synthetic check definitions and their results.
type Service struct {
	repo   repository.SyntheticRepository
	logger *slog.Logger
}

// NewService returns a check service.
func NewService(repo repository.SyntheticRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

func (s Service) Create(ctx context.Context, input Input) (*domain.SyntheticCheck, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errMissingName
	}
	checkType := strings.ToLower(strings.TrimSpace(input.Type))
	if checkType == "" {
		checkType = CheckTypeHTTP
	}
	if checkType != CheckTypeHTTP {
		return nil, errInvalidType
	}
	raw := strings.TrimSpace(input.URL)
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errInvalidURL
	}
	if input.IntervalSec <= 0 {
		return nil, errInvalidInterval
	}
	if input.TimeoutMS <= 0 {
		return nil, errInvalidTimeout
	}

	check := &domain.SyntheticCheck{
		Name:        name,
		Type:        checkType,
		URL:         raw,
		IntervalSec: input.IntervalSec,
		TimeoutMS:   input.TimeoutMS,
	}
	if err := s.repo.CreateCheck(ctx, check); err != nil {
		return nil, err
	}
	s.logger.Info("synthetic check created", "check_id", check.ID, "url", check.URL)
	return check, nil
}

func (s Service) List(ctx context.Context) ([]domain.SyntheticCheck, error) {
	return s.repo.ListChecks(ctx)
}

func (s Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteCheck(ctx, id)
}

// Results returns the newest results of a check. A missing check is NotFound.
func (s Service) Results(ctx context.Context, id int64, limit int) ([]domain.SyntheticResult, error) {
	if _, err := s.repo.GetCheck(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListResults(ctx, id, limit)
}
