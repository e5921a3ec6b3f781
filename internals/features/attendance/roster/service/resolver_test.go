package service

import (
	"context"
	"testing"

	rosterModel "smart_attendance_backend/internals/features/attendance/roster/model"
	"smart_attendance_backend/internals/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormResolver_YearFormatsAreEquivalent(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedStudent(t, db, "S1", "A", "4", "CourseX")
	testutil.SeedStudent(t, db, "S2", "A", "4th Year", "CourseX")
	testutil.SeedStudent(t, db, "S3", "a", "4th", "CourseX")
	testutil.SeedStudent(t, db, "S4", "A", "3rd Year", "CourseX")
	testutil.SeedStudent(t, db, "S5", "B", "4", "CourseX")
	testutil.SeedStudent(t, db, "S6", "A", "4", "CourseY")

	r := NewGormResolver(db)
	ctx := context.Background()

	short, err := r.Resolve(ctx, "CourseX", "A", "4")
	require.NoError(t, err)
	long, err := r.Resolve(ctx, "CourseX", "A", "4th Year")
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2", "S3"}, short.Sorted())
	assert.Equal(t, short, long)
}

func TestGormResolver_EmptyCourseUsesSectionAndYear(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedStudent(t, db, "S1", "A", "4", "CourseX")
	testutil.SeedStudent(t, db, "S6", "A", "4th Year", "CourseY")
	testutil.SeedStudent(t, db, "S7", "A", "4")

	got, err := NewGormResolver(db).Resolve(context.Background(), "", "Section A", "4")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S6", "S7"}, got.Sorted())
}

func TestGormResolver_SkipsInactive(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedStudent(t, db, "S1", "A", "4", "CourseX")
	require.NoError(t, db.Create(&rosterModel.StudentModel{
		StudentID:       uuid.New(),
		StudentCode:     "S9",
		StudentName:     "Dropped",
		StudentSection:  "A",
		StudentYear:     "4",
		StudentIsActive: false,
	}).Error)

	r := NewGormResolver(db)
	got, err := r.Resolve(context.Background(), "", "A", "4")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, got.Sorted())

	known, err := r.KnownStudent(context.Background(), "S9")
	require.NoError(t, err)
	assert.True(t, known, "inactive students still resolve as identities")

	known, err = r.KnownStudent(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestGormResolver_ReturnsCopies(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedStudent(t, db, "S1", "A", "4", "CourseX")

	r := NewGormResolver(db)
	first, err := r.Resolve(context.Background(), "CourseX", "A", "4")
	require.NoError(t, err)
	delete(first, "S1")

	second, err := r.Resolve(context.Background(), "CourseX", "A", "4")
	require.NoError(t, err)
	assert.True(t, second.Has("S1"))
}

func TestResolverFunc(t *testing.T) {
	var f Resolver = ResolverFunc(func(ctx context.Context, course, section, year string) (Roster, error) {
		return Roster{course + section + year: {}}, nil
	})
	got, err := f.Resolve(context.Background(), "c", "s", "y")
	require.NoError(t, err)
	assert.True(t, got.Has("csy"))
}
