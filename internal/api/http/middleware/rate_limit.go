package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/portalacademico/portal-backend/internal/auth"
)

// RateLimiter throttles a route per caller with a token bucket. Callers are
// keyed by user id, falling back to the client IP.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *xsync.MapOf[string, *rate.Limiter]
}

// NewRateLimiter allows perMinute requests per caller with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: xsync.NewMapOf[string, *rate.Limiter](),
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit == rate.Inf {
			c.Next()
			return
		}

		key := c.GetString(auth.CtxUserID)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		lim, _ := l.limiters.LoadOrCompute(key, func() *rate.Limiter {
			return rate.NewLimiter(l.limit, l.burst)
		})
		if !lim.Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}

// Sweep drops callers whose bucket has refilled. A fresh limiter behaves the
// same as a full one, so dropping them changes no decision.
func (l *RateLimiter) Sweep(now time.Time) int {
	dropped := 0
	l.limiters.Range(func(key string, lim *rate.Limiter) bool {
		if lim.TokensAt(now) < float64(l.burst) {
			return true
		}
		l.limiters.Compute(key, func(cur *rate.Limiter, loaded bool) (*rate.Limiter, bool) {
			if loaded && cur == lim && cur.TokensAt(now) >= float64(l.burst) {
				dropped++
				return nil, true
			}
			return cur, !loaded
		})
		return true
	})
	return dropped
}

// RunSweeper calls Sweep every interval until ctx ends.
func (l *RateLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	if l.limit == rate.Inf || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.Sweep(now)
		}
	}
}
