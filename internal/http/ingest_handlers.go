package httpx

import (
	"net/http"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/ingest"
)

type ingestResponse struct {
	Ingested int `json:"ingested"`
}

func (r *Router) handleIngestMetrics(w http.ResponseWriter, req *http.Request) {
	var batch []ingest.MetricInput
	if !decodeJSON(w, req, &batch) {
		return
	}
	n, err := r.svc.Ingest.Metrics(req.Context(), batch)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Ingested: n})
}

func (r *Router) handleIngestLogs(w http.ResponseWriter, req *http.Request) {
	var batch []ingest.LogInput
	if !decodeJSON(w, req, &batch) {
		return
	}
	n, err := r.svc.Ingest.Logs(req.Context(), batch)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Ingested: n})
}

func (r *Router) handleIngestTraces(w http.ResponseWriter, req *http.Request) {
	var batch []ingest.SpanInput
	if !decodeJSON(w, req, &batch) {
		return
	}
	n, err := r.svc.Ingest.Spans(req.Context(), batch)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Ingested: n})
}

// handleIngestDogStatsD accepts a text body of name:value|type|#tags lines.
func (r *Router) handleIngestDogStatsD(w http.ResponseWriter, req *http.Request) {
	body, ok := readBody(w, req)
	if !ok {
		return
	}
	n, err := r.svc.Ingest.Lines(req.Context(), body)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Ingested: n})
}
