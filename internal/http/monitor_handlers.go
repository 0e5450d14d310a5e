package httpx

import (
	"net/http"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/monitor"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/slo"
)

func (r *Router) handleListMonitors(w http.ResponseWriter, req *http.Request) {
	monitors, err := r.svc.Monitors.List(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, monitors)
}

func (r *Router) handleCreateMonitor(w http.ResponseWriter, req *http.Request) {
	var input monitor.Input
	if !decodeJSON(w, req, &input) {
		return
	}
	created, err := r.svc.Monitors.Create(req.Context(), input)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleGetMonitor(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	found, err := r.svc.Monitors.Get(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (r *Router) handleUpdateMonitor(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	var input monitor.Input
	if !decodeJSON(w, req, &input) {
		return
	}
	updated, err := r.svc.Monitors.Update(req.Context(), id, input)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeleteMonitor(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	if err := r.svc.Monitors.Delete(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (r *Router) handleListAlerts(w http.ResponseWriter, req *http.Request) {
	alerts, err := r.svc.Monitors.Alerts(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (r *Router) handleValidateMonitor(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	if err := r.svc.Monitors.Validate(payload.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (r *Router) handleListSLOs(w http.ResponseWriter, req *http.Request) {
	slos, err := r.svc.SLOs.List(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, slos)
}

func (r *Router) handleCreateSLO(w http.ResponseWriter, req *http.Request) {
	var input slo.Input
	if !decodeJSON(w, req, &input) {
		return
	}
	created, err := r.svc.SLOs.Create(req.Context(), input)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleGetSLO(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	found, err := r.svc.SLOs.Get(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (r *Router) handleDeleteSLO(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	if err := r.svc.SLOs.Delete(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (r *Router) handleSLOStatus(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "id")
	if !ok {
		return
	}
	status, err := r.svc.SLOs.Status(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
