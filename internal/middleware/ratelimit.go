package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"scrape-portal/internal/logger"
	"scrape-portal/pkg/identity"
)

// RateLimiter hands out one token bucket per user identity.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per user on average with the given
// burst. A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	l, ok := r.limiters[key]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[key] = l
	}
	r.mu.Unlock()
	return l.Allow()
}

// Middleware limits requests per authenticated user. It must run after
// AuthMiddleware.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := identity.Normalize(c.GetString(UserEmailKey))
		if !r.Allow(key) {
			logger.Logger.Infow("Rate limited", "user", key, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many submissions, please wait a moment",
			})
			return
		}
		c.Next()
	}
}
