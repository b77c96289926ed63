// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// window tracks request timestamps for a single caller.
type window struct {
	mu   sync.Mutex
	hits []time.Time
}

// prune drops hits older than cutoff and returns how many remain.
func (w *window) prune(cutoff time.Time) int {
	valid := w.hits[:0]
	for _, ts := range w.hits {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	w.hits = valid
	return len(valid)
}

// RateLimiter limits callers with a sliding window. Authenticated requests
// are keyed by user ID, anonymous ones by client IP. Generation endpoints
// cost real provider quota, so they get their own limiter.
type RateLimiter struct {
	mu      sync.RWMutex
	callers map[string]*window
	limit   int
	span    time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a rate limiter that allows limit requests per span.
// It starts a background goroutine to clean up idle callers.
func NewRateLimiter(limit int, span time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*window),
		limit:   limit,
		span:    span,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background cleanup goroutine. Safe to call twice.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// allow records a hit for key and reports whether it is within the limit.
// When denied, retry is how long until the oldest hit leaves the window.
func (rl *RateLimiter) allow(key string) (ok bool, retry time.Duration) {
	rl.mu.RLock()
	w, exists := rl.callers[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if w, exists = rl.callers[key]; !exists {
			w = &window{}
			rl.callers[key] = w
		}
		rl.mu.Unlock()
	}

	now := rl.now()
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.prune(now.Add(-rl.span)) >= rl.limit {
		return false, w.hits[0].Add(rl.span).Sub(now)
	}
	w.hits = append(w.hits, now)
	return true, 0
}

// cleanup removes callers with no hits inside the window.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.span)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.callers {
		w.mu.Lock()
		idle := w.prune(cutoff) == 0
		w.mu.Unlock()
		if idle {
			delete(rl.callers, key)
		}
	}
}

// Middleware returns an HTTP middleware enforcing the limit. Denied
// requests get a JSON 429 with a Retry-After header in seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := rl.allow(callerKey(r))
		if !ok {
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerKey identifies the caller: the user ID once RequireAuth has run,
// otherwise the client IP.
func callerKey(r *http.Request) string {
	if c := ClaimsFromCtx(r.Context()); c != nil {
		return "user:" + c.UserID.String()
	}
	return "ip:" + clientIP(r)
}

// clientIP extracts the client's IP address, checking X-Forwarded-For
// and X-Real-IP headers for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
