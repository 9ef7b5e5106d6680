package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/errors"
)

// HeaderUserID carries the caller identity when the body is not parsed yet.
const HeaderUserID = "X-Samay-User"

// RateLimiter provides rate limiting functionality.
type RateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter

	limit rate.Limit
	burst int
}

// NewRateLimiter creates a new rate limiter. Non-positive values fall back to
// 2 requests per second with a burst of 5.
func NewRateLimiter(cfg profile.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		limit:  rate.Limit(cfg.RPS),
		burst:  cfg.Burst,
	}
	if rl.limit <= 0 {
		rl.limit = 2
	}
	if rl.burst <= 0 {
		rl.burst = 5
	}
	return rl
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.limits[key]
	rl.mu.RUnlock()
	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Len reports how many keys hold a bucket.
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limits)
}

// KeyOf identifies the caller: the user id from the header or the user_id
// query parameter, else the real client IP.
func KeyOf(c echo.Context) string {
	for _, raw := range []string{c.Request().Header.Get(HeaderUserID), c.QueryParam("user_id")} {
		if id, err := strconv.ParseInt(raw, 10, 32); err == nil && id > 0 {
			return "user:" + raw
		}
	}
	return "ip:" + c.RealIP()
}

// Middleware rejects callers that exhausted their bucket with 429.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := KeyOf(c)
			if !rl.Allow(key) {
				slog.WarnContext(c.Request().Context(), "rate limit exceeded",
					slog.String("key", key),
					slog.String("path", c.Path()),
				)
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"code":         string(errors.ErrCodeRateLimited),
					"error":        "rate limit exceeded",
					"user_message": errors.UserMessage(errors.ErrCodeRateLimited),
				})
			}
			return next(c)
		}
	}
}
