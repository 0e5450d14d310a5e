package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/dsl"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/lineproto"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/incident"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/ingest"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/monitor"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/query"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/slo"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/synthetics"
)

const maxBodyBytes = 16 << 20

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error onto a status code. Internal errors
// are logged and hidden from the client.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	if status == http.StatusServiceUnavailable {
		r.logger.Warn("store unavailable", "path", req.URL.Path, "error", err)
		writeError(w, status, "store unavailable")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable
	case isBadRequest(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isBadRequest(err error) bool {
	return errors.Is(err, lineproto.ErrMalformedLine) ||
		errors.Is(err, dsl.ErrInvalidQuery) ||
		errors.Is(err, dsl.ErrInvalidWindow) ||
		errors.Is(err, ingest.ErrInvalidBatch) ||
		errors.Is(err, repository.ErrInvalidArgument) ||
		monitor.IsValidationError(err) ||
		slo.IsValidationError(err) ||
		synthetics.IsValidationError(err) ||
		incident.IsValidationError(err) ||
		query.IsValidationError(err)
}

// decodeJSON reads a JSON body into dst, rejecting trailing data.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, req *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "could not read body")
		return "", false
	}
	return string(body), true
}

func pathID(w http.ResponseWriter, req *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(req.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// queryParams parses optional query string values, remembering the first
// failure so a handler can report it once.
type queryParams struct {
	values map[string][]string
	err    error
}

func newQueryParams(req *http.Request) *queryParams {
	return &queryParams{values: req.URL.Query()}
}

func (q *queryParams) String(key string) string {
	if v := q.values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (q *queryParams) Time(key string) time.Time {
	raw := q.String(key)
	if raw == "" || q.err != nil {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	q.err = fmt.Errorf("invalid %s timestamp %q", key, raw)
	return time.Time{}
}

func (q *queryParams) Int(key string) int {
	raw := q.String(key)
	if raw == "" || q.err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.err = fmt.Errorf("invalid %s %q", key, raw)
		return 0
	}
	return n
}

// Tags collects repeated tag=k:v parameters.
func (q *queryParams) Tags(key string) map[string]string {
	tags := map[string]string{}
	for _, raw := range q.values[key] {
		k, v, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if !ok || strings.TrimSpace(k) == "" {
			if q.err == nil {
				q.err = fmt.Errorf("invalid %s %q, want key:value", key, raw)
			}
			continue
		}
		tags[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return tags
}

func (q *queryParams) Err() error {
	return q.err
}
