package middlewares

import (
	"context"
	"log"
	"time"

	"smart_attendance_backend/internals/configs"
	"smart_attendance_backend/internals/middlewares/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/utils"
)

// SetupMiddlewares installs the app-wide chain. Rate limiters are per route.
func SetupMiddlewares(app *fiber.App, cfg configs.Config) {
	app.Use(RecoveryMiddleware())
	app.Use(RequestContext(cfg.Server.RequestTimeout))
	app.Use(logger.LoggerMiddleware(cfg.Engine.Timezone))
	app.Use(CorsMiddleware(cfg.Server.CorsOrigins))
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())
}

// RequestContext sets X-Request-ID and bounds the handler's user context.
func RequestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUIDv4()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)

		start := time.Now()
		if timeout > 0 {
			ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
			defer cancel()
			c.SetUserContext(ctx)
		}
		err := c.Next()
		if dur := time.Since(start); dur > 2*time.Second {
			log.Printf("[REQ] slow id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), dur)
		}
		return err
	}
}
