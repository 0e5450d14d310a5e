package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/ws"
)

func tailService(w http.ResponseWriter, req *http.Request) (string, bool) {
	service := strings.TrimSpace(req.URL.Query().Get("service"))
	if service == "" {
		writeError(w, http.StatusBadRequest, "service query parameter required")
		return "", false
	}
	return service, true
}

// handleTailSSE streams new log events of one service as Server-Sent Events
// until the client disconnects.
func (r *Router) handleTailSSE(w http.ResponseWriter, req *http.Request) {
	service, ok := tailService(w, req)
	if !ok {
		return
	}
	client, err := ws.NewSSEClient(w, r.logger)
	if err != nil {
		r.logger.Error("live tail unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	defer client.Close()

	ctx := req.Context()
	sub := r.svc.Hub.Subscribe(ctx, service)
	r.metrics.TailOpened()
	defer r.metrics.TailClosed()

	r.logger.Debug("live tail opened", "transport", "sse", "service", service, "subscription", sub.ID)
	if err := ws.Forward(ctx, sub, client, r.heartbeat); !ws.IsClosed(err) {
		r.logger.Debug("live tail ended", "transport", "sse", "service", service, "error", err)
	}
}

// handleTailWS streams the same payloads over a WebSocket connection.
func (r *Router) handleTailWS(w http.ResponseWriter, req *http.Request) {
	service, ok := tailService(w, req)
	if !ok {
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	defer client.Close()

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	go client.WatchClose(cancel)

	sub := r.svc.Hub.Subscribe(ctx, service)
	r.metrics.TailOpened()
	defer r.metrics.TailClosed()

	r.logger.Debug("live tail opened", "transport", "websocket", "service", service, "subscription", sub.ID)
	if err := ws.Forward(ctx, sub, client, r.heartbeat); !ws.IsClosed(err) {
		r.logger.Debug("live tail ended", "transport", "websocket", "service", service, "error", err)
	}
}
