package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ondc-data/geo-enricher/pkg/response"
)

// RateLimiter caps requests per client IP over a sliding window. Idle
// clients are pruned lazily on access, at most once per window, so there is
// no background goroutine to leak per route group.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string][]time.Time
	limit     int
	window    time.Duration
	lastPrune time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
	}
}

// Allow records a request for ip and reports whether it fits the limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.pruneLocked(now)

	recent := trimBefore(rl.clients[ip], now.Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.clients[ip] = recent
		return false
	}
	rl.clients[ip] = append(recent, now)
	return true
}

// pruneLocked drops clients whose requests all fell out of the window.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.window {
		return
	}
	cutoff := now.Add(-rl.window)
	for ip, times := range rl.clients {
		if recent := trimBefore(times, cutoff); len(recent) == 0 {
			delete(rl.clients, ip)
		} else {
			rl.clients[ip] = recent
		}
	}
	rl.lastPrune = now
}

// trimBefore returns the timestamps after cutoff. times is in arrival
// order, so the survivors are a suffix.
func trimBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// RateLimit limits requests per client IP.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "rate limit exceeded, retry later")
			return
		}
		c.Next()
	}
}
