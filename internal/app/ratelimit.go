package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ccastromar/barberchat/internal/logx"
)

// idleLimiterTTL bounds how long an unused client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore holds one token bucket per client IP.
type rateLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

func newRateLimiterStore(rps float64, burst int) *rateLimiterStore {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiterStore{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (s *rateLimiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cl, ok := s.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for longer than idleLimiterTTL.
func (s *rateLimiterStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idleLimiterTTL)
	for k, cl := range s.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(s.limiters, k)
		}
	}
}

func (s *rateLimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// rateLimitMiddleware limits requests per client IP. A non-positive rps
// disables it.
func rateLimitMiddleware(s *rateLimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rps <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !s.allow(ip) {
			logx.Warn("HTTP", "rate limit exceeded ip=%s path=%s", ip, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}
