package httpx

import (
	"net/http"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/incident"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/synthetics"
)

const defaultResultLimit = 20

func (r *Router) handleListChecks(w http.ResponseWriter, req *http.Request) {
	checks, err := r.svc.Synthetics.List(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (r *Router) handleCreateCheck(w http.ResponseWriter, req *http.Request) {
	var input synthetics.Input
	if !decodeJSON(w, req, &input) {
		return
	}
	created, err := r.svc.Synthetics.Create(req.Context(), input)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleDeleteCheck(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	if err := r.svc.Synthetics.Delete(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (r *Router) handleCheckResults(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	q := newQueryParams(req)
	limit := q.Int("limit")
	if err := q.Err(); err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit == 0 {
		limit = defaultResultLimit
	}
	results, err := r.svc.Synthetics.Results(req.Context(), id, limit)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (r *Router) handleListIncidents(w http.ResponseWriter, req *http.Request) {
	incidents, err := r.svc.Incidents.List(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, incidents)
}

func (r *Router) handleCreateIncident(w http.ResponseWriter, req *http.Request) {
	var input incident.Input
	if !decodeJSON(w, req, &input) {
		return
	}
	created, err := r.svc.Incidents.Create(req.Context(), input)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleGetIncident(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	detail, err := r.svc.Incidents.Get(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (r *Router) handleAppendIncidentEvent(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	var input incident.EventInput
	if !decodeJSON(w, req, &input) {
		return
	}
	event, err := r.svc.Incidents.AppendEvent(req.Context(), id, input)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}
