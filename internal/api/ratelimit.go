package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rollcall-dev/rollcall/pkg/logger"
	"go.uber.org/zap"
)

// LoginRateLimiter bounds login attempts per client IP using a Redis counter
// with a one-minute window, so the limit holds across replicas.
type LoginRateLimiter struct {
	rdb    *redis.Client
	perMin int
}

func NewLoginRateLimiter(rdb *redis.Client, perMin int) *LoginRateLimiter {
	return &LoginRateLimiter{rdb: rdb, perMin: perMin}
}

func (l *LoginRateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}

			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:login:%s", ip)

			count, err := l.rdb.Incr(ctx, key).Result()
			if err != nil {
				// Rate limiting degrades open when Redis is unavailable; the
				// outage is visible on /health.
				logger.FromContext(ctx).Warn("rate limiter unavailable", zap.Error(err))
				return next(c)
			}
			if count == 1 {
				l.rdb.Expire(ctx, key, time.Minute)
			}

			if count > int64(l.perMin) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
			}

			return next(c)
		}
	}
}
