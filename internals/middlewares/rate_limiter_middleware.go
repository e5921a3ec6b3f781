package middlewares

import (
	"time"

	helper "smart_attendance_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func limitReached(msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return helper.JsonError(c, fiber.StatusTooManyRequests, msg)
	}
}

// ControlRateLimiter: instructor endpoints (start/stop/reopen/end, reads)
func ControlRateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: limitReached("❌ Too many requests, try again shortly."),
	})
}

// IngestRateLimiter: recognition events, keyed by camera IP + session so one
// busy feed cannot starve another session.
func IngestRateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + c.Params("id")
		},
		LimitReached: limitReached("❌ Recognition rate limit reached for this session."),
	})
}
