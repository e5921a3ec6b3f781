package dto

import (
	recordDTO "smart_attendance_backend/internals/features/attendance/records/dto"
	recordService "smart_attendance_backend/internals/features/attendance/records/service"
	sessionDTO "smart_attendance_backend/internals/features/attendance/sessions/dto"
	"smart_attendance_backend/internals/features/attendance/sessions/model"
)

// IngestResult is the per-event answer for live feedback. A rejected event has
// Accepted=false and a Reason code; nothing was written for it.
type IngestResult struct {
	StudentID string                    `json:"student_id"`
	Accepted  bool                      `json:"accepted"`
	Outcome   recordService.Outcome     `json:"outcome,omitempty"`
	Record    *recordDTO.RecordResponse `json:"record,omitempty"`
	Reason    string                    `json:"reason,omitempty"`
	Message   string                    `json:"message,omitempty"`
}

type BatchIngestResponse struct {
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	Results  []IngestResult `json:"results"`
}

type StopResponse struct {
	Session sessionDTO.SessionResponse `json:"session"`
	Summary model.ReconcileSummary     `json:"summary"`
}

type EndResponse struct {
	Session sessionDTO.SessionResponse `json:"session"`
	Summary *model.ReconcileSummary    `json:"summary,omitempty"`
}

type SessionAttendanceResponse struct {
	Session      sessionDTO.SessionResponse `json:"session"`
	Date         string                     `json:"date"`
	PresentCount int                        `json:"present_count"`
	AbsentCount  int                        `json:"absent_count"`
	Records      []recordDTO.RecordResponse `json:"records"`
}
