package route

import (
	ctrl "smart_attendance_backend/internals/features/attendance/engine/controller"
	engineService "smart_attendance_backend/internals/features/attendance/engine/service"

	"github.com/gofiber/fiber/v2"
)

// Both route sets live under the same /sessions prefix, so limiters are attached
// per route rather than per group.

// AttendanceControlRoutes: instructor control surface (lifecycle + reads).
func AttendanceControlRoutes(r fiber.Router, eng *engineService.Engine, limiter fiber.Handler) {
	c := ctrl.NewAttendanceController(eng)

	s := r.Group("/sessions")
	s.Get("/", limiter, c.ListSessions)
	s.Post("/", limiter, c.StartSession)
	s.Get("/:id", limiter, c.GetSession)
	s.Post("/:id/stop", limiter, c.StopSession)
	s.Post("/:id/reopen", limiter, c.ReopenSession)
	s.Post("/:id/end", limiter, c.EndSession)
	s.Post("/:id/absentees", limiter, c.MarkAbsentees)
}

// AttendanceIngestRoutes: recognition pipeline endpoints (high frequency).
func AttendanceIngestRoutes(r fiber.Router, eng *engineService.Engine, limiter fiber.Handler) {
	c := ctrl.NewAttendanceController(eng)

	s := r.Group("/sessions")
	s.Post("/:id/recognitions", limiter, c.Ingest)
	s.Post("/:id/recognitions/batch", limiter, c.IngestBatch)
}
