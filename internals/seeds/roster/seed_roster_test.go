package roster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	rosterService "smart_attendance_backend/internals/features/attendance/roster/service"
	"smart_attendance_backend/internals/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRosterFromJSON_IdempotentAndResolvable(t *testing.T) {
	db := testutil.OpenDB(t)
	path := "data_roster.json"

	first, err := SeedRosterFromJSON(db, path)
	require.NoError(t, err)
	assert.Equal(t, 8, first.Students)
	assert.Equal(t, 10, first.Enrollments)

	second, err := SeedRosterFromJSON(db, path)
	require.NoError(t, err)
	assert.Zero(t, second.Students)
	assert.Equal(t, 8, second.Skipped)
	assert.Zero(t, second.Enrollments)

	r := rosterService.NewGormResolver(db)
	got, err := r.Resolve(context.Background(), "Computer Vision", "A", "4th Year")
	require.NoError(t, err)
	assert.Equal(t, []string{"ETS0101/13", "ETS0102/13", "ETS0103/13"}, got.Sorted())

	// inactive student is left out
	got, err = r.Resolve(context.Background(), "Data Structures", "A", "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"ETS0201/14", "ETS0202/14"}, got.Sorted())
}

func TestSeedRosterFromJSON_BadFile(t *testing.T) {
	db := testutil.OpenDB(t)

	_, err := SeedRosterFromJSON(db, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = SeedRosterFromJSON(db, bad)
	assert.Error(t, err)
}
