// file: internals/features/attendance/engine/controller/attendance_controller.go
package controller

import (
	"log"
	"strings"

	engineService "smart_attendance_backend/internals/features/attendance/engine/service"
	"smart_attendance_backend/internals/features/attendance/errs"
	recDTO "smart_attendance_backend/internals/features/attendance/recognition/dto"
	sessionDTO "smart_attendance_backend/internals/features/attendance/sessions/dto"
	"smart_attendance_backend/internals/features/attendance/sessions/model"
	sessionService "smart_attendance_backend/internals/features/attendance/sessions/service"
	helper "smart_attendance_backend/internals/helpers"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type AttendanceController struct {
	Engine    *engineService.Engine
	Validator *validator.Validate
}

func NewAttendanceController(e *engineService.Engine) *AttendanceController {
	return &AttendanceController{Engine: e, Validator: validator.New()}
}

// fail renders a core error with its status and domain code.
func fail(c *fiber.Ctx, err error) error {
	status := errs.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("[attendance] ❌ %s %s: %v", c.Method(), c.OriginalURL(), err)
		return helper.JsonErrorCode(c, status, errs.Code(err), "internal error")
	}
	return helper.JsonErrorCode(c, status, errs.Code(err), err.Error())
}

/* =========================================================
   LIFECYCLE
========================================================= */

// POST /api/attendance/sessions
func (ctl *AttendanceController) StartSession(c *fiber.Ctx) error {
	var req sessionDTO.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := ctl.Validator.Struct(&req); err != nil {
		if fields, ok := helper.ValidationFields(err); ok {
			return helper.JsonValidationError(c, fields)
		}
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := ctl.Engine.StartSession(c.UserContext(), sessionService.StartInput{
		Name:         req.Name,
		Course:       req.Course,
		Section:      req.Section,
		Year:         req.Year,
		InstructorID: req.InstructorID,
		Type:         model.SessionType(req.SessionType),
		TimeBlock:    model.TimeBlock(req.TimeBlock),
	})
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonCreated(c, "session started", out)
}

// POST /api/attendance/sessions/:id/stop
func (ctl *AttendanceController) StopSession(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid session id")
	}
	out, err := ctl.Engine.StopDailySession(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonOK(c, "session stopped for today", out)
}

// POST /api/attendance/sessions/:id/reopen
func (ctl *AttendanceController) ReopenSession(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid session id")
	}
	out, err := ctl.Engine.ReopenSession(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonOK(c, "session reopened", out)
}

// POST /api/attendance/sessions/:id/end
func (ctl *AttendanceController) EndSession(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid session id")
	}
	out, err := ctl.Engine.EndSemesterSession(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonOK(c, "session ended for the semester", out)
}

// POST /api/attendance/sessions/:id/absentees
func (ctl *AttendanceController) MarkAbsentees(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid session id")
	}
	out, err := ctl.Engine.MarkAbsentees(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonOK(c, "absentees reconciled", out)
}

/* =========================================================
   INGEST
========================================================= */

// POST /api/attendance/sessions/:id/recognitions
// A rejected event is a normal answer (200, accepted=false); cameras keep sending.
func (ctl *AttendanceController) Ingest(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid session id")
	}
	var ev recDTO.RecognitionEvent
	if err := c.BodyParser(&ev); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	res, err := ctl.Engine.Ingest(c.UserContext(), id, ev)
	if err != nil {
		if errs.IsRejection(err) {
			return helper.JsonOK(c, "event rejected", res)
		}
		return fail(c, err)
	}
	return helper.JsonOK(c, string(res.Outcome), res)
}

// POST /api/attendance/sessions/:id/recognitions/batch
func (ctl *AttendanceController) IngestBatch(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid session id")
	}
	var req recDTO.BatchRecognitionRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if n := len(req.Events); n == 0 || n > 64 {
		return helper.JsonError(c, fiber.StatusBadRequest, "events must hold 1..64 items")
	}

	out, err := ctl.Engine.IngestBatch(c.UserContext(), id, req.Events)
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonOK(c, "batch processed", out)
}

/* =========================================================
   READ
========================================================= */

// GET /api/attendance/sessions?instructor_id=&status=&course=
func (ctl *AttendanceController) ListSessions(c *fiber.Ctx) error {
	var q sessionDTO.ListSessionsQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid query")
	}
	out, err := ctl.Engine.ListSessions(c.UserContext(), sessionService.ListFilter{
		InstructorID: strings.TrimSpace(q.InstructorID),
		Status:       strings.TrimSpace(q.Status),
		Course:       strings.TrimSpace(q.Course),
	})
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonList(c, "ok", out, len(out))
}

// GET /api/attendance/sessions/:id?date=YYYY-MM-DD
func (ctl *AttendanceController) GetSession(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid session id")
	}
	out, err := ctl.Engine.SessionAttendance(c.UserContext(), id, strings.TrimSpace(c.Query("date")))
	if err != nil {
		return fail(c, err)
	}
	return helper.JsonOK(c, "ok", out)
}
