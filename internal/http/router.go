package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/metrics"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/incident"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/ingest"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/monitor"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/query"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/slo"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/service/synthetics"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/ws"
)

// Services bundles the domain services served over HTTP.
type Services struct {
	Ingest     ingest.Service
	Query      query.Service
	Monitors   monitor.Service
	SLOs       *slo.Calculator
	Synthetics synthetics.Service
	Incidents  *incident.Service
	Hub        *ws.Hub
}

// Options tunes the router. Zero values fall back to defaults.
type Options struct {
	APIKey          string
	IngestRateLimit int
	QueryRateLimit  int
	TailHeartbeat   time.Duration
	Registerer      prometheus.Registerer
	Gatherer        prometheus.Gatherer
	Metrics         *metrics.Metrics
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	svc      Services
	upgrader websocket.Upgrader
	limiter  RateLimiter
	apiKey   string
	dbHealth func(context.Context) error

	ingestLimit int
	queryLimit  int
	heartbeat   time.Duration
	http        *httpMetrics
	gatherer    prometheus.Gatherer
	metrics     *metrics.Metrics
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitIngest    = 600
	rateLimitQuery     = 1200
	rateLimitTail      = 30
	healthCheckTimeout = 2 * time.Second
	defaultHeartbeat   = 15 * time.Second
	requestIDHeader    = "X-Request-ID"
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, svc Services, limiter RateLimiter, opts Options, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		svc:    svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:     limiter,
		apiKey:      strings.TrimSpace(opts.APIKey),
		dbHealth:    dbHealth,
		ingestLimit: opts.IngestRateLimit,
		queryLimit:  opts.QueryRateLimit,
		heartbeat:   opts.TailHeartbeat,
		gatherer:    opts.Gatherer,
		metrics:     opts.Metrics,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.ingestLimit <= 0 {
		r.ingestLimit = rateLimitIngest
	}
	if r.queryLimit <= 0 {
		r.queryLimit = rateLimitQuery
	}
	if r.heartbeat <= 0 {
		r.heartbeat = defaultHeartbeat
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if r.gatherer == nil {
		r.gatherer = prometheus.DefaultGatherer
	}
	r.http = newHTTPMetrics(reg)
	r.register()
	return r
}

// ServeHTTP answers CORS preflights and delegates everything else to the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	setCORSHeaders(w, req)
	if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /health", r.audit(r.handleHealth))
	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.Handle("GET /metrics", r.metricsHandler())

	r.ingest("POST /api/v1/ingest/metrics", r.handleIngestMetrics)
	r.ingest("POST /api/v1/ingest/logs", r.handleIngestLogs)
	r.ingest("POST /api/v1/ingest/traces", r.handleIngestTraces)
	r.ingest("POST /api/v1/ingest/dogstatsd", r.handleIngestDogStatsD)

	r.read("GET /api/v1/services", r.handleServices)
	r.read("GET /api/v1/metrics/timeseries", r.handleTimeseries)
	r.read("GET /api/v1/logs/search", r.handleLogSearch)
	r.read("GET /api/v1/traces/search", r.handleTraceSearch)
	r.read("GET /api/v1/traces/{trace_id}", r.handleTrace)

	r.tail("GET /api/v1/logs/tail", r.handleTailSSE)
	r.tail("GET /api/v1/logs/ws", r.handleTailWS)

	r.read("GET /api/v1/monitors", r.handleListMonitors)
	r.read("POST /api/v1/monitors", r.handleCreateMonitor)
	r.read("GET /api/v1/monitors/alerts", r.handleListAlerts)
	r.read("POST /api/v1/monitors/validate", r.handleValidateMonitor)
	r.read("GET /api/v1/monitors/{id}", r.handleGetMonitor)
	r.read("PUT /api/v1/monitors/{id}", r.handleUpdateMonitor)
	r.read("DELETE /api/v1/monitors/{id}", r.handleDeleteMonitor)

	r.read("GET /api/v1/slo", r.handleListSLOs)
	r.read("POST /api/v1/slo", r.handleCreateSLO)
	r.read("GET /api/v1/slo/{id}", r.handleGetSLO)
	r.read("DELETE /api/v1/slo/{id}", r.handleDeleteSLO)
	r.read("GET /api/v1/slo/{id}/status", r.handleSLOStatus)

	r.read("GET /api/v1/synthetics", r.handleListChecks)
	r.read("POST /api/v1/synthetics", r.handleCreateCheck)
	r.read("DELETE /api/v1/synthetics/{id}", r.handleDeleteCheck)
	r.read("GET /api/v1/synthetics/{id}/results", r.handleCheckResults)

	r.read("GET /api/v1/incidents", r.handleListIncidents)
	r.read("POST /api/v1/incidents", r.handleCreateIncident)
	r.read("GET /api/v1/incidents/{id}", r.handleGetIncident)
	r.read("POST /api/v1/incidents/{id}/events", r.handleAppendIncidentEvent)
}

func (r *Router) ingest(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(r.requireAPIKey(r.withRateLimit("ingest", r.ingestLimit, rateWindowDefault, rateLimitKeyIP, h))))
}

func (r *Router) read(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(r.requireAPIKey(r.withRateLimit("api", r.queryLimit, rateWindowDefault, rateLimitKeyIP, h))))
}

func (r *Router) tail(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(r.requireAPIKey(r.withRateLimit("tail", rateLimitTail, rateWindowRealtime, rateLimitKeyIP, h))))
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["store"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["store"] = map[string]any{"status": "up"}
		}
	}
	if r.svc.Hub != nil {
		components["live_tail"] = map[string]any{"status": "up", "subscribers": r.svc.Hub.Total()}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		reqID := strings.TrimSpace(req.Header.Get(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		route := req.Pattern
		if route == "" {
			route = req.URL.Path
		}
		r.http.observe(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if recorder.actor != "" {
			fields = append(fields, "actor", recorder.actor)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	actor  string
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetActor(actor string) {
	sr.actor = actor
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		if sr.status == 0 {
			sr.status = http.StatusSwitchingProtocols
		}
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := max(limit-decision.count, 0)
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}
