package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit configures per-client request limiting. RPM 0 disables it.
type RateLimit struct {
	RPM   int
	Burst int
}

// clientLimiter pairs a token bucket with its last use, for eviction.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter stores rate limiters per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute per client
// with the given burst. Clients idle for longer than ttl are forgotten.
func NewRateLimiter(requestsPerMinute, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow reports whether the client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.ttl {
		rl.sweep(now)
	}

	cl, ok := rl.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for longer than ttl. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for client, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > rl.ttl {
			delete(rl.limiters, client)
		}
	}
	rl.lastSweep = now
}

// size returns the number of tracked clients. Used for testing.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// middleware rejects requests over the limit with a 429 error envelope.
func (rl *RateLimiter) middleware(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}

		if !rl.Allow(ip) {
			s.writeError(c, http.StatusTooManyRequests, ErrCodeRateLimited, "rate limit exceeded", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
