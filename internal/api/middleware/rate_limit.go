package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/utils"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per caller key
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// Cleanup drops buckets that have refilled completely
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, limiter := range rl.limiters {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.Cleanup()
		}
	}()
}

func (rl *RateLimiter) reject(w http.ResponseWriter) {
	retry := 1
	if rl.rate > 0 && rl.rate < 1 {
		retry = int(math.Ceil(1 / float64(rl.rate)))
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	utils.WriteError(w, errors.RateLimited("Too many requests. Please try again later."))
}

// RateLimit returns a middleware that rate limits requests by client IP
func RateLimit(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(requestsPerSecond, burst)
	limiter.startCleanup()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow("ip:" + clientIP(r)) {
				limiter.reject(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserRateLimit returns a middleware that rate limits requests per user,
// falling back to the client IP for anonymous callers
func UserRateLimit(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(requestsPerSecond, burst)
	limiter.startCleanup()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if userID, ok := GetUserID(r); ok {
				key = fmt.Sprintf("user:%d", userID)
			}
			if !limiter.Allow(key) {
				limiter.reject(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
