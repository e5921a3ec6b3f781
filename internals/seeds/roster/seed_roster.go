package roster

import (
	"fmt"
	"log"
	"os"
	"strings"

	rosterModel "smart_attendance_backend/internals/features/attendance/roster/model"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentSeed struct {
	StudentCode string   `json:"student_code"`
	Name        string   `json:"name"`
	Section     string   `json:"section"`
	Year        string   `json:"year"`
	Courses     []string `json:"courses"`
	IsActive    *bool    `json:"is_active"` // default true
}

type Result struct {
	Students    int
	Skipped     int
	Enrollments int
}

// SeedRosterFromJSON loads students and their course enrollments. Existing
// student codes are skipped; enrollments are insert-or-ignore, so reruns are safe.
// Year and section are stored as given; the resolver normalizes them.
func SeedRosterFromJSON(db *gorm.DB, filePath string) (Result, error) {
	log.Println("📥 Reading roster file:", filePath)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("read roster file: %w", err)
	}
	var data []StudentSeed
	if err := sonic.Unmarshal(content, &data); err != nil {
		return Result{}, fmt.Errorf("decode roster file: %w", err)
	}

	var res Result
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, item := range data {
			code := strings.TrimSpace(item.StudentCode)
			if code == "" {
				log.Printf("⚠️ roster entry without student_code, skipped")
				continue
			}

			var n int64
			if err := tx.Model(&rosterModel.StudentModel{}).Where("student_code = ?", code).Count(&n).Error; err != nil {
				return fmt.Errorf("lookup %s: %w", code, err)
			}
			if n > 0 {
				log.Printf("ℹ️ Student %s already exists, skipping...", code)
				res.Skipped++
			} else {
				active := item.IsActive == nil || *item.IsActive
				st := rosterModel.StudentModel{
					StudentID:       uuid.New(),
					StudentCode:     code,
					StudentName:     strings.TrimSpace(item.Name),
					StudentSection:  strings.TrimSpace(item.Section),
					StudentYear:     strings.TrimSpace(item.Year),
					StudentIsActive: active,
				}
				if err := tx.Create(&st).Error; err != nil {
					return fmt.Errorf("insert student %s: %w", code, err)
				}
				res.Students++
			}

			for _, course := range item.Courses {
				course = strings.Join(strings.Fields(course), " ")
				if course == "" {
					continue
				}
				en := rosterModel.CourseEnrollmentModel{
					CourseEnrollmentID:          uuid.New(),
					CourseEnrollmentStudentCode: code,
					CourseEnrollmentCourse:      course,
					CourseEnrollmentIsActive:    true,
				}
				r := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&en)
				if r.Error != nil {
					return fmt.Errorf("insert enrollment %s/%s: %w", code, course, r.Error)
				}
				res.Enrollments += int(r.RowsAffected)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Printf("✅ Roster seeded: %d new students, %d skipped, %d enrollments", res.Students, res.Skipped, res.Enrollments)
	return res, nil
}
