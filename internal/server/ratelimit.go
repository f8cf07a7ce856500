package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window per-caller limiter backed by Redis so the
// window is shared across replicas. A Redis error fails open: resolution
// availability beats strict accounting.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window}
}

// Allow counts one request for key and reports whether it fits the window.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := "ratelimit:" + key + ":" + strconv.FormatInt(time.Now().UnixNano()/int64(rl.window), 10)
	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(rl.limit), nil
}

// Middleware keys the limit by authenticated subject, falling back to the
// caller's IP for unauthenticated routes.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if sub, ok := c.Get("subject").(string); ok && sub != "" {
				key = sub
			}
			allowed, err := rl.Allow(c.Request().Context(), key)
			if err != nil {
				return next(c)
			}
			if !allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
