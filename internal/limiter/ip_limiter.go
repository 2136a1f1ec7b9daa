// Package limiter provides per-IP request rate limiting for the REST API.
//
// Each client IP gets its own token bucket (rate.Limiter); a background
// goroutine periodically drops buckets that have refilled completely so the
// map does not grow without bound.
package limiter

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// IPRateLimiter implements a rate limiter keyed by client IP address.
type IPRateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter
	r      rate.Limit
	b      int
	log    *zerolog.Logger
}

// NewIPRateLimiter creates a limiter allowing r events per second with burst
// capacity b per IP, and starts the cleanup goroutine.
func NewIPRateLimiter(r rate.Limit, b int, logger *zerolog.Logger) *IPRateLimiter {
	l := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		log:    logger,
	}

	go l.cleanup()

	return l
}

// GetLimiter returns the rate limiter for the given IP, creating one when
// absent. Uses double-checked locking so concurrent creation stays safe.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[ip]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		limiter, exists = l.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(l.r, l.b)
			l.limits[ip] = limiter
		}
		l.mu.Unlock()
	}

	return limiter
}

// cleanup periodically removes limiters whose buckets are full again.
func (l *IPRateLimiter) cleanup() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		removed := 0
		for ip, limiter := range l.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(l.limits, ip)
				removed++
			}
		}
		remaining := len(l.limits)
		l.mu.Unlock()
		l.log.Debug().Int("removed", removed).Int("remaining", remaining).Msg("rate limiter cleanup")
	}
}

// Middleware returns a gin middleware that rejects over-limit requests
// with 429 Too Many Requests.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.GetLimiter(ip).Allow() {
			l.log.Debug().Str("ip", ip).Msg("request rate limited")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
