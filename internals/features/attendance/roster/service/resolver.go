// file: internals/features/attendance/roster/service/resolver.go
package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"smart_attendance_backend/internals/helpers/yearfmt"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Roster is a set of student codes.
type Roster map[string]struct{}

func (r Roster) Has(code string) bool { _, ok := r[code]; return ok }

// Sorted returns the codes in a stable order (absent inserts, responses).
func (r Roster) Sorted() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolver answers "who is enrolled in course/section/year". Pure read.
type Resolver interface {
	Resolve(ctx context.Context, course, section, year string) (Roster, error)
}

// Directory resolves a recognized identity to a known student.
type Directory interface {
	KnownStudent(ctx context.Context, code string) (bool, error)
}

// ResolverFunc adapts a plain function (external roster services, tests).
type ResolverFunc func(ctx context.Context, course, section, year string) (Roster, error)

func (f ResolverFunc) Resolve(ctx context.Context, course, section, year string) (Roster, error) {
	return f(ctx, course, section, year)
}

// ============================
// gorm-backed resolver
// ============================

type GormResolver struct {
	DB    *gorm.DB
	group singleflight.Group
}

func NewGormResolver(db *gorm.DB) *GormResolver { return &GormResolver{DB: db} }

type rosterRow struct {
	Code    string `gorm:"column:student_code"`
	Section string `gorm:"column:student_section"`
	Year    string `gorm:"column:student_year"`
}

// Resolve filters by course in SQL and by canonical section and year in Go, since
// stored values are not canonical. An empty course means section + year only.
func (r *GormResolver) Resolve(ctx context.Context, course, section, year string) (Roster, error) {
	course = yearfmt.NormalizeCourse(course)
	section = yearfmt.NormalizeSection(section)
	year = yearfmt.NormalizeYear(year)
	key := strings.Join([]string{strings.ToLower(course), section, year}, "|")

	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.load(ctx, course, section, year)
	})
	if err != nil {
		return nil, err
	}
	// callers may mutate their copy
	shared := v.(Roster)
	out := make(Roster, len(shared))
	for k := range shared {
		out[k] = struct{}{}
	}
	return out, nil
}

func (r *GormResolver) load(ctx context.Context, course, section, year string) (Roster, error) {
	var rows []rosterRow
	q := r.DB.WithContext(ctx).
		Table("students AS s").
		Select("s.student_code, s.student_section, s.student_year").
		Where("s.student_is_active = ?", true)

	if course != "" {
		q = q.Where(`EXISTS (
			SELECT 1 FROM course_enrollments e
			 WHERE e.course_enrollment_student_code = s.student_code
			   AND LOWER(e.course_enrollment_course) = LOWER(?)
			   AND e.course_enrollment_is_active = ?)`, course, true)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("resolve roster: %w", err)
	}

	out := make(Roster, len(rows))
	for _, row := range rows {
		if yearfmt.NormalizeSection(row.Section) != section || yearfmt.NormalizeYear(row.Year) != year {
			continue
		}
		out[strings.TrimSpace(row.Code)] = struct{}{}
	}
	log.Printf("[roster] course=%q section=%s year=%q -> %d students", course, section, year, len(out))
	return out, nil
}

// KnownStudent reports whether the code belongs to any student row, active or not.
// Roster membership is not required at write time.
func (r *GormResolver) KnownStudent(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Table("students").
		Where("student_code = ?", strings.TrimSpace(code)).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("lookup student: %w", err)
	}
	return n > 0, nil
}
