package database

import (
	"fmt"
	"log"

	recordModel "smart_attendance_backend/internals/features/attendance/records/model"
	rosterModel "smart_attendance_backend/internals/features/attendance/roster/model"
	sessionModel "smart_attendance_backend/internals/features/attendance/sessions/model"

	"gorm.io/gorm"
)

// Partial unique index: at most one active session per (course, section, year).
// Postgres and SQLite both accept this form.
const activeScopeIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS uq_attendance_sessions_active_scope
  ON attendance_sessions (attendance_session_course, attendance_session_section, attendance_session_year)
  WHERE attendance_session_status = 'active'`

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&rosterModel.StudentModel{},
		&rosterModel.CourseEnrollmentModel{},
		&sessionModel.AttendanceSessionModel{},
		&recordModel.AttendanceRecordModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(activeScopeIndex).Error; err != nil {
		return fmt.Errorf("create active scope index: %w", err)
	}
	log.Println("✅ Schema migrated.")
	return nil
}
