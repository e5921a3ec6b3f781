package dto

import (
	"time"

	"smart_attendance_backend/internals/features/attendance/records/model"
	"smart_attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
)

type RecordResponse struct {
	ID         uuid.UUID          `json:"id"`
	StudentID  string             `json:"student_id"`
	SessionID  uuid.UUID          `json:"session_id"`
	Date       string             `json:"date"`
	Status     model.RecordStatus `json:"status"`
	Confidence *float64           `json:"confidence"`
	Timestamp  time.Time          `json:"timestamp"`
	Detections int                `json:"detections"`
	Course     string             `json:"course_name"`
	Section    string             `json:"section_id"`
	Year       string             `json:"year"`
	Instructor string             `json:"instructor_id"`
}

func FromModel(m model.AttendanceRecordModel, loc *time.Location) RecordResponse {
	return RecordResponse{
		ID:         m.AttendanceRecordID,
		StudentID:  m.AttendanceRecordStudentID,
		SessionID:  m.AttendanceRecordSessionID,
		Date:       m.AttendanceRecordDate,
		Status:     m.AttendanceRecordStatus,
		Confidence: m.AttendanceRecordConfidence,
		Timestamp:  dbtime.ToCampusTime(m.AttendanceRecordTimestamp, loc),
		Detections: m.AttendanceRecordDetections,
		Course:     m.AttendanceRecordCourseName,
		Section:    m.AttendanceRecordSectionID,
		Year:       m.AttendanceRecordYear,
		Instructor: m.AttendanceRecordInstructorID,
	}
}

func FromModels(rows []model.AttendanceRecordModel, loc *time.Location) []RecordResponse {
	out := make([]RecordResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromModel(r, loc))
	}
	return out
}
