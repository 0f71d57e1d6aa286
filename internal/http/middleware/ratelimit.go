package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter provides per-IP rate limiting over fixed windows: each IP
// gets max requests per window, and the counter resets when the window
// rolls over.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	window  time.Duration
	max     int

	now func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing max requests per window per IP.
func NewRateLimiter(windowSize time.Duration, max int) *RateLimiter {
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	if max <= 0 {
		max = 20
	}
	rl := &RateLimiter{
		windows: make(map[string]*window),
		window:  windowSize,
		max:     max,
		now:     time.Now,
	}
	// Periodically evict stale entries to prevent memory growth.
	go rl.cleanup()
	return rl
}

// Allow returns true if the request from ip is within the rate limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &window{start: now}
		rl.windows[ip] = w
	}

	if w.count >= rl.max {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := rl.now().Add(-2 * rl.window)
		for ip, w := range rl.windows {
			if w.start.Before(cutoff) {
				delete(rl.windows, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit returns an HTTP middleware that rejects requests exceeding
// the configured rate with 429 Too Many Requests.
func RateLimit(windowSize time.Duration, max int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(windowSize, max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
