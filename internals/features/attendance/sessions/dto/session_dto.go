package dto

import (
	"math"
	"strings"
	"time"

	"smart_attendance_backend/internals/features/attendance/sessions/model"
	"smart_attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
)

/* =========================================================
   REQUEST
========================================================= */

type StartSessionRequest struct {
	Name         string `json:"name" validate:"omitempty,max=160"`
	Course       string `json:"course" validate:"omitempty,max=160"`
	Section      string `json:"section" validate:"required,max=40"`
	Year         string `json:"year" validate:"required,max=20"`
	InstructorID string `json:"instructor_id" validate:"required,max=64"`
	SessionType  string `json:"session_type" validate:"omitempty,oneof=lab theory"`
	TimeBlock    string `json:"time_block" validate:"omitempty,oneof=morning afternoon"`
}

func (r *StartSessionRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Course = strings.TrimSpace(r.Course)
	r.Section = strings.TrimSpace(r.Section)
	r.Year = strings.TrimSpace(r.Year)
	r.InstructorID = strings.TrimSpace(r.InstructorID)
	r.SessionType = strings.ToLower(strings.TrimSpace(r.SessionType))
	r.TimeBlock = strings.ToLower(strings.TrimSpace(r.TimeBlock))
}

// ListSessionsQuery: GET /api/attendance/sessions?instructor_id=&status=&course=
type ListSessionsQuery struct {
	InstructorID string `query:"instructor_id"`
	Status       string `query:"status"`
	Course       string `query:"course"`
}

/* =========================================================
   RESPONSE
========================================================= */

type SessionResponse struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	Course       string              `json:"course"`
	Section      string              `json:"section"`
	Year         string              `json:"year"`
	InstructorID string              `json:"instructor_id"`
	SessionType  model.SessionType   `json:"session_type"`
	TimeBlock    model.TimeBlock     `json:"time_block"`
	Status       model.SessionStatus `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	LastStopped  *time.Time          `json:"last_stopped_at,omitempty"`
	EndedAt      *time.Time          `json:"ended_at,omitempty"`
	ReopenCount  int                 `json:"reopen_count"`

	CanReopen               bool                    `json:"can_reopen"`
	ReopenExpiresAt         *time.Time              `json:"reopen_expires_at,omitempty"`
	HoursUntilReopenExpires *float64                `json:"hours_until_reopen_expires,omitempty"`
	LastReconcile           *model.ReconcileSummary `json:"last_reconcile,omitempty"`
}

// FromModel renders a session in the campus zone with its reopen state at now.
func FromModel(m *model.AttendanceSessionModel, now time.Time, window time.Duration, loc *time.Location) SessionResponse {
	out := SessionResponse{
		ID:           m.AttendanceSessionID,
		Name:         m.AttendanceSessionName,
		Course:       m.AttendanceSessionCourse,
		Section:      m.AttendanceSessionSection,
		Year:         m.AttendanceSessionYear,
		InstructorID: m.AttendanceSessionInstructorID,
		SessionType:  m.AttendanceSessionType,
		TimeBlock:    m.AttendanceSessionTimeBlock,
		Status:       m.AttendanceSessionStatus,
		StartedAt:    dbtime.ToCampusTime(m.AttendanceSessionStartedAt, loc),
		LastStopped:  dbtime.ToCampusTimePtr(m.AttendanceSessionLastStoppedAt, loc),
		EndedAt:      dbtime.ToCampusTimePtr(m.AttendanceSessionEndedAt, loc),
		ReopenCount:  m.AttendanceSessionReopenCount,
		CanReopen:    m.CanReopen(now, window),
	}
	if out.CanReopen {
		deadline := dbtime.ToCampusTime(m.ReopenDeadline(window), loc)
		hours := math.Round(deadline.Sub(now).Hours()*10) / 10
		out.ReopenExpiresAt = &deadline
		out.HoursUntilReopenExpires = &hours
	}
	if sum, ok := m.LastReconcile(); ok {
		out.LastReconcile = &sum
	}
	return out
}
