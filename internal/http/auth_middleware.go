package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

type actorSetter interface {
	SetActor(string)
}

// requireAPIKey rejects requests whose X-API-Key does not match the
// configured key.
func (r *Router) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !r.verifyAPIKey(w, req) {
			return
		}
		if setter, ok := w.(actorSetter); ok {
			setter.SetActor("api_key")
		}
		next(w, req)
	}
}

func (r *Router) verifyAPIKey(w http.ResponseWriter, req *http.Request) bool {
	expected := r.apiKey
	if expected == "" {
		r.logger.Error("api key not configured", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "api authentication misconfigured")
		return false
	}
	key := strings.TrimSpace(req.Header.Get(apiKeyHeader))
	if key == "" {
		// Browsers cannot set headers on EventSource or WebSocket requests.
		key = strings.TrimSpace(req.URL.Query().Get("api_key"))
	}
	if len(key) != len(expected) || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
		r.logger.Warn("api key mismatch", "path", req.URL.Path, "ip", clientIP(req))
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return false
	}
	return true
}

func setCORSHeaders(w http.ResponseWriter, req *http.Request) {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID")
	h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
	h.Add("Vary", "Origin")
}
