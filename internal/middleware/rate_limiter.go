package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/patternforge/diamondgrid/internal/config"
	"github.com/patternforge/diamondgrid/internal/logging"
)

// UploadRateLimiter throttles the processing endpoints per client IP. Image
// processing is CPU-heavy, so the budget is requests per minute with a small
// burst, not per hour.
type UploadRateLimiter struct {
	limiters map[string]*clientLimiter
	mutex    sync.Mutex

	perMinute int
	burst     int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUploadRateLimiter creates a rate limiter configured from
// RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST.
func NewUploadRateLimiter() *UploadRateLimiter {
	l := &UploadRateLimiter{
		limiters:  make(map[string]*clientLimiter),
		perMinute: config.GetInt("RATE_LIMIT_PER_MINUTE", 10),
		burst:     config.GetInt("RATE_LIMIT_BURST", 3),
	}

	go l.cleanupRoutine()

	return l
}

// RateLimit is a middleware that enforces the per-client request budget
func (l *UploadRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !l.clientFor(ip).Allow() {
			logging.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"rate_limit": fmt.Sprintf("%d/minute", l.perMinute),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestSizeLimit middleware rejects uploads over the byte limit before the
// body is read.
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			logging.Warn("request too large", "size", c.Request.ContentLength, "limit", maxBytes, "ip", c.ClientIP())
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":    "Request payload too large",
				"max_size": fmt.Sprintf("%dB", maxBytes),
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// clientFor returns the token bucket for an IP, creating it on first use.
func (l *UploadRateLimiter) clientFor(ip string) *rate.Limiter {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	cl, ok := l.limiters[ip]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.burst),
		}
		l.limiters[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

// cleanupRoutine removes buckets for clients idle longer than an hour
func (l *UploadRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.cleanup()
	}
}

func (l *UploadRateLimiter) cleanup() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for ip, cl := range l.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}
