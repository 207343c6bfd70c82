package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter caps requests per client IP over a fixed window. The auth and
// analyzer route groups each get their own limiter since an analysis request
// costs an LLM call while a login attempt is only bcrypt-bound.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
	}

	// Expired windows are dropped periodically so the map stays bounded.
	go func() {
		ticker := time.NewTicker(window)
		for range ticker.C {
			now := time.Now()
			rl.mu.Lock()
			for ip, w := range rl.windows {
				if now.After(w.resetAt) {
					delete(rl.windows, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// allow counts one request against the key's current window and reports
// whether it stays within the limit.
func (rl *RateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		rl.windows[key] = &rateWindow{count: 1, resetAt: now.Add(rl.window)}
		return true
	}

	w.count++
	return w.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RealIP runs earlier in the chain and may have rewritten RemoteAddr
		// to a bare IP; otherwise strip the ephemeral port so reconnects
		// count against the same window.
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !rl.allow(ip) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
