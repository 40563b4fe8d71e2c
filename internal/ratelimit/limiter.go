// Package ratelimit implements a fixed-window request limiter backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/response"
)

var ErrTooManyRequests = apperror.New(http.StatusTooManyRequests, "too many requests, slow down")

// Limiter allows at most limit hits per key in each window.
type Limiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewLimiter(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

// Allow records a hit for key and reports whether it is within the limit,
// together with the time left in the current window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	bucket := now.UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)
	resetIn := time.Duration((bucket+1)*int64(l.window) - now.UnixNano())

	n, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr rate limit counter: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("expire rate limit counter: %w", err)
		}
	}

	return n <= l.limit, resetIn, nil
}

// Middleware limits requests per principal, or per client IP for anonymous
// callers. Redis errors let the request through.
func (l *Limiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()
		if p := auth.GetPrincipal(c); p != nil {
			identity = "user:" + p.ID
		}

		ok, resetIn, err := l.Allow(c.Request.Context(), scope+":"+identity)
		if err != nil {
			log.Printf("rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if !ok {
			seconds := int(resetIn.Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(seconds))
			response.Abort(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// Passthrough is used in place of a limiter when Redis is not configured.
func Passthrough() gin.HandlerFunc {
	return func(c *gin.Context) { c.Next() }
}
