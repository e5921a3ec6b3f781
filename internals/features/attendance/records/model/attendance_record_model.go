// file: internals/features/attendance/records/model/attendance_record_model.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type RecordStatus string

const (
	RecordPresent RecordStatus = "present"
	RecordAbsent  RecordStatus = "absent"
)

// Column names used by raw SQL in the ledger.
const (
	ColStudentID = "attendance_record_student_id"
	ColSessionID = "attendance_record_session_id"
	ColDate      = "attendance_record_date"
	ColStatus    = "attendance_record_status"
)

// AttendanceRecordModel is unique on (student, session, date). Only the ledger writes it.
type AttendanceRecordModel struct {
	// PK
	AttendanceRecordID uuid.UUID `gorm:"type:uuid;primaryKey;column:attendance_record_id" json:"attendance_record_id"`

	// Identity
	AttendanceRecordStudentID string    `gorm:"type:varchar(64);not null;column:attendance_record_student_id;uniqueIndex:uq_attendance_records_student_session_date,priority:1" json:"attendance_record_student_id"`
	AttendanceRecordSessionID uuid.UUID `gorm:"type:uuid;not null;column:attendance_record_session_id;uniqueIndex:uq_attendance_records_student_session_date,priority:2;index:idx_attendance_records_session_date,priority:1" json:"attendance_record_session_id"`
	AttendanceRecordDate      string    `gorm:"type:varchar(10);not null;column:attendance_record_date;uniqueIndex:uq_attendance_records_student_session_date,priority:3;index:idx_attendance_records_session_date,priority:2" json:"attendance_record_date"`

	AttendanceRecordStatus     RecordStatus `gorm:"type:varchar(16);not null;column:attendance_record_status" json:"attendance_record_status"`
	AttendanceRecordConfidence *float64     `gorm:"column:attendance_record_confidence" json:"attendance_record_confidence"`
	AttendanceRecordTimestamp  time.Time    `gorm:"not null;column:attendance_record_timestamp" json:"attendance_record_timestamp"`
	AttendanceRecordDetections int          `gorm:"not null;default:0;column:attendance_record_detections" json:"attendance_record_detections"`

	// Denormalized from the session
	AttendanceRecordInstructorID string `gorm:"type:varchar(64);not null;default:'';column:attendance_record_instructor_id" json:"attendance_record_instructor_id"`
	AttendanceRecordCourseName   string `gorm:"type:varchar(160);not null;default:'';column:attendance_record_course_name" json:"attendance_record_course_name"`
	AttendanceRecordSectionID    string `gorm:"type:varchar(40);not null;default:'';column:attendance_record_section_id" json:"attendance_record_section_id"`
	AttendanceRecordYear         string `gorm:"type:varchar(20);not null;default:'';column:attendance_record_year" json:"attendance_record_year"`

	// Audit
	AttendanceRecordCreatedAt time.Time `gorm:"not null;column:attendance_record_created_at" json:"attendance_record_created_at"`
	AttendanceRecordUpdatedAt time.Time `gorm:"not null;column:attendance_record_updated_at" json:"attendance_record_updated_at"`
}

func (AttendanceRecordModel) TableName() string { return "attendance_records" }
