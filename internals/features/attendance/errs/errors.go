// file: internals/features/attendance/errs/errors.go
package errs

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Every outcome of the attendance core is one of these. Callers match with errors.Is.
var (
	ErrConflict            = errors.New("an active session already exists for this course, section and year")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrLowConfidence       = errors.New("recognition confidence below threshold")
	ErrReopenWindowExpired = errors.New("reopen window expired, end the session instead")
	ErrSessionTerminated   = errors.New("session has ended for the semester")
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnknownStudent      = errors.New("student could not be resolved")
	ErrInvalidEvent        = errors.New("invalid recognition event")
	ErrInvalidTransition   = errors.New("invalid session transition")
	ErrInvalidSession      = errors.New("invalid session request")
)

// IsDuplicateKey matches unique violations from both the translated gorm error
// and raw driver messages.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "violates unique constraint") ||
		strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "sqlstate 23505")
}

// IsRejection reports the non-fatal outcomes of an ingest: the event is dropped
// and reported, the camera keeps going.
func IsRejection(err error) bool {
	return errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrLowConfidence) ||
		errors.Is(err, ErrUnknownStudent) ||
		errors.Is(err, ErrSessionTerminated)
}

// HTTPStatus maps a core error onto the control surface's status codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrSessionNotActive),
		errors.Is(err, ErrSessionTerminated), errors.Is(err, ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, ErrReopenWindowExpired):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrLowConfidence), errors.Is(err, ErrUnknownStudent),
		errors.Is(err, ErrInvalidEvent), errors.Is(err, ErrInvalidSession):
		return fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// Code is the machine-readable name of err, used in rejection payloads.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrSessionNotActive):
		return "SESSION_NOT_ACTIVE"
	case errors.Is(err, ErrLowConfidence):
		return "LOW_CONFIDENCE"
	case errors.Is(err, ErrReopenWindowExpired):
		return "REOPEN_WINDOW_EXPIRED"
	case errors.Is(err, ErrSessionTerminated):
		return "SESSION_TERMINATED"
	case errors.Is(err, ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, ErrUnknownStudent):
		return "UNKNOWN_STUDENT"
	case errors.Is(err, ErrInvalidEvent):
		return "INVALID_EVENT"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrInvalidSession):
		return "INVALID_SESSION"
	default:
		return "INTERNAL_ERROR"
	}
}
