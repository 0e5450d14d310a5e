package httpx

import (
	"net/http"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/domain"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/query"
)

func (r *Router) handleServices(w http.ResponseWriter, req *http.Request) {
	services, err := r.svc.Query.Services(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (r *Router) handleTimeseries(w http.ResponseWriter, req *http.Request) {
	q := newQueryParams(req)
	request := query.TimeseriesRequest{
		Name:    q.String("name"),
		Service: q.String("service"),
		Tags:    q.Tags("tag"),
		From:    q.Time("from"),
		To:      q.Time("to"),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := r.svc.Query.Timeseries(req.Context(), request)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (r *Router) handleLogSearch(w http.ResponseWriter, req *http.Request) {
	q := newQueryParams(req)
	filter := domain.LogFilter{
		Query:   q.String("q"),
		Service: q.String("service"),
		Level:   q.String("level"),
		From:    q.Time("from"),
		To:      q.Time("to"),
		Limit:   q.Int("limit"),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := r.svc.Query.Logs(req.Context(), filter)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (r *Router) handleTraceSearch(w http.ResponseWriter, req *http.Request) {
	q := newQueryParams(req)
	filter := domain.SpanFilter{
		Service:       q.String("service"),
		Status:        q.String("status"),
		MinDurationMS: int64(q.Int("min_duration_ms")),
		From:          q.Time("from"),
		To:            q.Time("to"),
		Limit:         q.Int("limit"),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spans, err := r.svc.Query.Spans(req.Context(), filter)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, spans)
}

func (r *Router) handleTrace(w http.ResponseWriter, req *http.Request) {
	trace, err := r.svc.Query.Trace(req.Context(), req.PathValue("trace_id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}
