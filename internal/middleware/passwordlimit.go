package middleware

import (
	"net/http"
	"sync"
	"time"
)

const (
	passwordMaxAttempts    = 5
	passwordWindowDuration = time.Minute
	passwordCleanupPeriod  = 5 * time.Minute
)

type passwordAttempt struct {
	count       int
	windowStart time.Time
}

// PasswordRateLimiter slows brute forcing of the stream password wall.
// It is in-memory and per-process; the redis limiter covers the routes
// that need cross-instance coordination.
type PasswordRateLimiter struct {
	mu          sync.RWMutex
	attempts    map[string]*passwordAttempt
	lastCleanup time.Time
}

func NewPasswordRateLimiter() *PasswordRateLimiter {
	return &PasswordRateLimiter{
		attempts:    make(map[string]*passwordAttempt),
		lastCleanup: time.Now(),
	}
}

func (l *PasswordRateLimiter) cleanup() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < passwordCleanupPeriod {
		return
	}
	l.lastCleanup = now

	for ip, attempt := range l.attempts {
		if now.Sub(attempt.windowStart) > passwordWindowDuration {
			delete(l.attempts, ip)
		}
	}
}

func (l *PasswordRateLimiter) isAllowed(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup()

	now := time.Now()
	attempt, exists := l.attempts[ip]

	if !exists {
		l.attempts[ip] = &passwordAttempt{
			count:       1,
			windowStart: now,
		}
		return true
	}

	if now.Sub(attempt.windowStart) > passwordWindowDuration {
		attempt.count = 1
		attempt.windowStart = now
		return true
	}

	if attempt.count >= passwordMaxAttempts {
		return false
	}

	attempt.count++
	return true
}

func (l *PasswordRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip = forwarded
		}

		if !l.isAllowed(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many password attempts. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
