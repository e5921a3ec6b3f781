// file: internals/features/attendance/roster/model/student_model.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentModel is owned by the student admin surface; this core only reads it.
// StudentYear is stored as entered upstream ("4", "4th", "4th Year").
type StudentModel struct {
	StudentID       uuid.UUID `gorm:"type:uuid;primaryKey;column:student_id" json:"student_id"`
	StudentCode     string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_students_code;column:student_code" json:"student_code"`
	StudentName     string    `gorm:"type:varchar(160);not null;column:student_name" json:"student_name"`
	StudentSection  string    `gorm:"type:varchar(40);not null;column:student_section;index:idx_students_section" json:"student_section"`
	StudentYear     string    `gorm:"type:varchar(20);not null;column:student_year" json:"student_year"`
	StudentIsActive bool      `gorm:"not null;column:student_is_active" json:"student_is_active"`

	StudentCreatedAt time.Time `gorm:"autoCreateTime;column:student_created_at" json:"student_created_at"`
	StudentUpdatedAt time.Time `gorm:"autoUpdateTime;column:student_updated_at" json:"student_updated_at"`
}

func (StudentModel) TableName() string { return "students" }

type CourseEnrollmentModel struct {
	CourseEnrollmentID          uuid.UUID `gorm:"type:uuid;primaryKey;column:course_enrollment_id" json:"course_enrollment_id"`
	CourseEnrollmentStudentCode string    `gorm:"type:varchar(64);not null;column:course_enrollment_student_code;uniqueIndex:uq_course_enrollments_student_course,priority:1" json:"course_enrollment_student_code"`
	CourseEnrollmentCourse      string    `gorm:"type:varchar(160);not null;column:course_enrollment_course;uniqueIndex:uq_course_enrollments_student_course,priority:2" json:"course_enrollment_course"`
	CourseEnrollmentIsActive    bool      `gorm:"not null;column:course_enrollment_is_active" json:"course_enrollment_is_active"`

	CourseEnrollmentCreatedAt time.Time `gorm:"autoCreateTime;column:course_enrollment_created_at" json:"course_enrollment_created_at"`
}

func (CourseEnrollmentModel) TableName() string { return "course_enrollments" }
