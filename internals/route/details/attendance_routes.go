package details

import (
	"smart_attendance_backend/internals/configs"
	engineRoute "smart_attendance_backend/internals/features/attendance/engine/route"
	engineService "smart_attendance_backend/internals/features/attendance/engine/service"
	rateLimiter "smart_attendance_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AttendanceRoutes mounts /api/attendance. One engine per process so the roster
// lookups share their singleflight group.
func AttendanceRoutes(app *fiber.App, db *gorm.DB, cfg configs.Config) {
	eng := engineService.New(db, cfg.Engine)

	api := app.Group("/api/attendance")
	engineRoute.AttendanceControlRoutes(api, eng, rateLimiter.ControlRateLimiter(cfg.Server.RateLimit))
	engineRoute.AttendanceIngestRoutes(api, eng, rateLimiter.IngestRateLimiter(cfg.Server.IngestRateLimit))
}
