package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/profilehub/internal/apperror"
)

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// RateLimiter counts requests per client IP in fixed windows. It guards the
// credential endpoints (sign in, sign up, reset request) against brute force.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*rateLimitEntry
	lastSweep time.Time
}

// NewRateLimiter allows max requests per IP in each window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateLimitEntry),
	}
}

// Allow records one request from ip and reports whether it is within the
// limit. At most once per window it also drops stale entries.
func (l *RateLimiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		l.sweepLocked(now)
	}

	entry, ok := l.entries[ip]
	if !ok || now.Sub(entry.windowStart) > l.window {
		l.entries[ip] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	entry.count++
	return entry.count <= l.max
}

// Sweep drops entries whose window ended long ago.
func (l *RateLimiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	l.lastSweep = now
	for ip, entry := range l.entries {
		if now.Sub(entry.windowStart) > l.window*2 {
			delete(l.entries, ip)
		}
	}
}

// Middleware rejects requests over the limit with a 429 AppError, which the
// central error handler renders.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !l.Allow(ip) {
				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", c.Request().URL.Path),
				)
				return apperror.NewTooManyRequests("リクエストが多すぎます。しばらくしてから再度お試しください。")
			}
			return next(c)
		}
	}
}

// RateLimit returns middleware allowing maxRequests per IP per window.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return NewRateLimiter(maxRequests, window).Middleware()
}
