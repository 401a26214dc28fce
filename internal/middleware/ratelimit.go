package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter implements per-client-IP sliding window rate limiting for the
// public API surface.
type RateLimiter struct {
	mu          sync.Mutex
	counters    map[string]*window
	max         int
	window      time.Duration
	lastCleanup time.Time
}

type window struct {
	count       int
	windowStart time.Time
	resetAt     time.Time
	lastSeen    time.Time
}

const (
	cleanupInterval    = 5 * time.Minute
	expiredWindowGrace = 10 * time.Minute
	staleEntryTTL      = 24 * time.Hour
)

// NewRateLimiter creates a new in-memory rate limiter allowing max requests
// per windowDuration for each client key.
func NewRateLimiter(max int, windowDuration time.Duration) *RateLimiter {
	if max <= 0 {
		max = 100
	}
	if windowDuration <= 0 {
		windowDuration = 15 * time.Minute
	}

	return &RateLimiter{
		counters:    make(map[string]*window),
		max:         max,
		window:      windowDuration,
		lastCleanup: time.Now(),
	}
}

// Allow checks if the client key is within its rate limit.
// Returns (allowed, remaining, resetAt).
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, exists := rl.counters[key]
	if !exists || now.After(w.resetAt) {
		rl.counters[key] = &window{
			count:       1,
			windowStart: now,
			resetAt:     now.Add(rl.window),
			lastSeen:    now,
		}
		rl.cleanupLocked(now)
		return true, rl.max - 1, now.Add(rl.window)
	}

	w.lastSeen = now
	resetAt := w.resetAt

	if w.count >= rl.max {
		rl.cleanupLocked(now)
		return false, 0, resetAt
	}

	w.count++
	rl.cleanupLocked(now)
	return true, rl.max - w.count, resetAt
}

// RateLimitMiddleware returns middleware that enforces the per-IP limit.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetAt := rl.Allow(ClientIPKey(r, "ip"))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}

	for key, w := range rl.counters {
		if now.Sub(w.lastSeen) > staleEntryTTL || now.After(w.resetAt.Add(expiredWindowGrace)) {
			delete(rl.counters, key)
		}
	}

	rl.lastCleanup = now
}
