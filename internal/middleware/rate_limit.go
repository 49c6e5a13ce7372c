package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"sciportfolio/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type RateLimiter interface {
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit caps requests per caller per window. Authenticated callers are
// keyed by user id, others by client IP. Limiter failures let the request through.
func RateLimit(limiter RateLimiter, limit int, window time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || limit <= 0 {
				return next(c)
			}
			key := "ip:" + c.RealIP()
			if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
				key = "user:" + userID.String()
			}

			limited, err := limiter.IsRateLimited(c.Request().Context(), key, limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
				return next(c)
			}
			if limited {
				c.Response().Header().Set("Retry-After", retryAfter)
				return c.JSON(http.StatusTooManyRequests, common.CreateErrorResponse("RATE_LIMITED", "Too many requests", nil))
			}
			return next(c)
		}
	}
}
