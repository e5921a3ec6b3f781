// Package testutil opens throwaway stores and clocks for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	database "smart_attendance_backend/internals/databases"
	rosterModel "smart_attendance_backend/internals/features/attendance/roster/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated SQLite-backed gorm handle in t.TempDir().
// One connection: SQLite serializes writers anyway and a single conn keeps
// concurrent tests free of SQLITE_BUSY.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "attendance.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedStudent inserts an active student enrolled in the given courses.
func SeedStudent(t testing.TB, db *gorm.DB, code, section, year string, courses ...string) {
	t.Helper()

	st := rosterModel.StudentModel{
		StudentID:       uuid.New(),
		StudentCode:     code,
		StudentName:     "Student " + code,
		StudentSection:  section,
		StudentYear:     year,
		StudentIsActive: true,
	}
	if err := db.Create(&st).Error; err != nil {
		t.Fatalf("seed student %s: %v", code, err)
	}
	for _, c := range courses {
		en := rosterModel.CourseEnrollmentModel{
			CourseEnrollmentID:          uuid.New(),
			CourseEnrollmentStudentCode: code,
			CourseEnrollmentCourse:      c,
			CourseEnrollmentIsActive:    true,
		}
		if err := db.Create(&en).Error; err != nil {
			t.Fatalf("seed enrollment %s/%s: %v", code, c, err)
		}
	}
}
