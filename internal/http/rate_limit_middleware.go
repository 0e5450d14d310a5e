package httpx

import (
	"net/http"
	"sync"
	"time"
)

const rateLimiterSweepInterval = 5 * time.Minute

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]rateState
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

type rateState struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateLimiter returns a process-local limiter. Expired windows are
// swept in the background until Close.
func NewMemoryRateLimiter() RateLimiter {
	rl := newMemoryRateLimiter(time.Now)
	go rl.sweepLoop()
	return rl
}

func newMemoryRateLimiter(now func() time.Time) *memoryRateLimiter {
	return &memoryRateLimiter{
		entries: make(map[string]rateState),
		stopCh:  make(chan struct{}),
		now:     now,
	}
}

func (rl *memoryRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.entries[key]
	if !ok || now.After(state.windowEnd) {
		state = rateState{count: 1, windowEnd: now.Add(window)}
		rl.entries[key] = state
		return rateDecision{allowed: true, count: state.count, windowEnd: state.windowEnd}
	}
	if state.count >= limit {
		return rateDecision{allowed: false, count: state.count, windowEnd: state.windowEnd}
	}
	state.count++
	rl.entries[key] = state
	return rateDecision{allowed: true, count: state.count, windowEnd: state.windowEnd}
}

func (rl *memoryRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(rl.now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *memoryRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, state := range rl.entries {
		if now.After(state.windowEnd) {
			delete(rl.entries, key)
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
}

// withRateLimit applies a per-client budget shared by every route of group.
func (r *Router) withRateLimit(group string, limit int, window time.Duration, keyFn func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		decision := r.limiter.Allow(group+":"+keyFn(req), limit, window)
		r.applyRateHeaders(w, limit, decision)
		if !decision.allowed {
			r.http.rateLimited(group)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

func rateLimitKeyIP(req *http.Request) string {
	host := clientIP(req)
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}
