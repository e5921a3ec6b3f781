package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart_attendance_backend/internals/configs"
	"smart_attendance_backend/internals/features/attendance/errs"
	recordService "smart_attendance_backend/internals/features/attendance/records/service"
	rosterService "smart_attendance_backend/internals/features/attendance/roster/service"
	"smart_attendance_backend/internals/features/attendance/sessions/model"
	"smart_attendance_backend/internals/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	clock  *testutil.ManualClock
	ledger *recordService.Ledger
	svc    *Service
}

func newFixture(t *testing.T, roster ...string) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	clock := testutil.NewManualClock(t0)
	resolver := rosterService.ResolverFunc(func(context.Context, string, string, string) (rosterService.Roster, error) {
		out := rosterService.Roster{}
		for _, c := range roster {
			out[c] = struct{}{}
		}
		return out, nil
	})

	cfg := configs.DefaultEngineConfig()
	ledger := recordService.New(db, resolver, cfg)
	ledger.Now = clock.Now
	svc := New(db, resolver, ledger, cfg)
	svc.Now = clock.Now
	return &fixture{db: db, clock: clock, ledger: ledger, svc: svc}
}

func (f *fixture) start(t *testing.T, section, year string) *model.AttendanceSessionModel {
	t.Helper()
	s, err := f.svc.Start(context.Background(), StartInput{
		Course: "CourseX", Section: section, Year: year, InstructorID: "T1",
	})
	require.NoError(t, err)
	return s
}

func TestStart_DefaultsAndNormalization(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "section a", "4")

	assert.Equal(t, model.SessionActive, s.AttendanceSessionStatus)
	assert.Equal(t, "A", s.AttendanceSessionSection)
	assert.Equal(t, "4th Year", s.AttendanceSessionYear)
	assert.Equal(t, model.SessionTypeTheory, s.AttendanceSessionType)
	assert.Equal(t, model.TimeBlockMorning, s.AttendanceSessionTimeBlock)
	assert.Equal(t, "Session 2026-03-02 08:00", s.AttendanceSessionName)
	assert.True(t, s.AttendanceSessionStartedAt.Equal(t0))
}

func TestStart_ConflictPerScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.start(t, "A", "4")

	_, err := f.svc.Start(ctx, StartInput{Course: "CourseX", Section: "A", Year: "4th Year", InstructorID: "T2"})
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = f.svc.Start(ctx, StartInput{Course: "CourseX", Section: "B", Year: "4", InstructorID: "T1"})
	assert.NoError(t, err)
}

func TestStart_ActiveScopeIndexBacksTheCheck(t *testing.T) {
	f := newFixture(t)
	first := f.start(t, "A", "4")

	dup := *first
	dup.AttendanceSessionID = uuid.New()
	err := f.db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, errs.IsDuplicateKey(err))
}

func TestStart_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, StartInput{Course: "CourseX", Section: "A", InstructorID: "T1"})
	assert.ErrorIs(t, err, errs.ErrInvalidSession)

	_, err = f.svc.Start(ctx, StartInput{Section: "A", Year: "4", InstructorID: "T1", Type: "seminar"})
	assert.ErrorIs(t, err, errs.ErrInvalidSession)
}

func TestStopDaily_CommitsAbsenteesThenStops(t *testing.T) {
	f := newFixture(t, "S1", "S2", "S3")
	ctx := context.Background()
	s := f.start(t, "A", "4")

	_, err := f.ledger.RecordPresence(ctx, s.AttendanceSessionID, "S1", 0.75, t0.Add(time.Minute))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	stopped, sum, err := f.svc.StopDaily(ctx, s.AttendanceSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStoppedDaily, stopped.AttendanceSessionStatus)
	require.NotNil(t, stopped.AttendanceSessionLastStoppedAt)
	assert.True(t, stopped.AttendanceSessionLastStoppedAt.Equal(t0.Add(time.Hour)))
	assert.Equal(t, 1, sum.PresentCount)
	assert.Equal(t, 2, sum.AbsentCount)

	stored, ok := stopped.LastReconcile()
	require.True(t, ok)
	assert.Equal(t, sum.AbsentCount, stored.AbsentCount)

	_, _, err = f.svc.StopDaily(ctx, s.AttendanceSessionID)
	assert.ErrorIs(t, err, errs.ErrSessionNotActive)
}

type failingReconciler struct{}

func (failingReconciler) ReconcileInTx(context.Context, *gorm.DB, *model.AttendanceSessionModel, rosterService.Roster, string) (model.ReconcileSummary, error) {
	return model.ReconcileSummary{}, errors.New("disk full")
}

func TestStopDaily_FailedReconcileLeavesSessionActive(t *testing.T) {
	f := newFixture(t, "S1")
	s := f.start(t, "A", "4")
	f.svc.Reconciler = failingReconciler{}

	_, _, err := f.svc.StopDaily(context.Background(), s.AttendanceSessionID)
	require.Error(t, err)

	got, err := f.svc.Get(context.Background(), s.AttendanceSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, got.AttendanceSessionStatus)
	assert.Nil(t, got.AttendanceSessionLastStoppedAt)
}

func TestReopen_WindowBoundary(t *testing.T) {
	ctx := context.Background()

	t.Run("exactly twelve hours", func(t *testing.T) {
		f := newFixture(t)
		s := f.start(t, "A", "4")
		_, _, err := f.svc.StopDaily(ctx, s.AttendanceSessionID)
		require.NoError(t, err)

		f.clock.Advance(12 * time.Hour)
		got, err := f.svc.Reopen(ctx, s.AttendanceSessionID)
		require.NoError(t, err)
		assert.Equal(t, model.SessionActive, got.AttendanceSessionStatus)
		assert.Equal(t, 1, got.AttendanceSessionReopenCount)
	})

	t.Run("one second late", func(t *testing.T) {
		f := newFixture(t)
		s := f.start(t, "A", "4")
		_, _, err := f.svc.StopDaily(ctx, s.AttendanceSessionID)
		require.NoError(t, err)

		f.clock.Advance(12*time.Hour + time.Second)
		_, err = f.svc.Reopen(ctx, s.AttendanceSessionID)
		assert.ErrorIs(t, err, errs.ErrReopenWindowExpired)

		got, err := f.svc.Get(ctx, s.AttendanceSessionID)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStoppedDaily, got.AttendanceSessionStatus)
	})
}

func TestReopen_InvalidStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.start(t, "A", "4")

	_, err := f.svc.Reopen(ctx, s.AttendanceSessionID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	_, err = f.svc.Reopen(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestReopen_ConflictsWithNewerActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.start(t, "A", "4")
	_, _, err := f.svc.StopDaily(ctx, old.AttendanceSessionID)
	require.NoError(t, err)

	f.start(t, "A", "4")

	_, err = f.svc.Reopen(ctx, old.AttendanceSessionID)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestEndSemester(t *testing.T) {
	ctx := context.Background()

	t.Run("from active reconciles", func(t *testing.T) {
		f := newFixture(t, "S1", "S2")
		s := f.start(t, "A", "4")

		ended, sum, err := f.svc.EndSemester(ctx, s.AttendanceSessionID)
		require.NoError(t, err)
		require.NotNil(t, sum)
		assert.Equal(t, 2, sum.AbsentCount)
		assert.Equal(t, model.SessionEndedSemester, ended.AttendanceSessionStatus)
		assert.NotNil(t, ended.AttendanceSessionEndedAt)
	})

	t.Run("from stopped does not reconcile again", func(t *testing.T) {
		f := newFixture(t, "S1", "S2")
		s := f.start(t, "A", "4")
		_, _, err := f.svc.StopDaily(ctx, s.AttendanceSessionID)
		require.NoError(t, err)

		f.svc.Reconciler = failingReconciler{}
		ended, sum, err := f.svc.EndSemester(ctx, s.AttendanceSessionID)
		require.NoError(t, err)
		assert.Nil(t, sum)
		assert.Equal(t, model.SessionEndedSemester, ended.AttendanceSessionStatus)
	})

	t.Run("terminal refuses everything", func(t *testing.T) {
		f := newFixture(t)
		s := f.start(t, "A", "4")
		_, _, err := f.svc.EndSemester(ctx, s.AttendanceSessionID)
		require.NoError(t, err)

		_, _, err = f.svc.StopDaily(ctx, s.AttendanceSessionID)
		assert.ErrorIs(t, err, errs.ErrSessionTerminated)
		_, err = f.svc.Reopen(ctx, s.AttendanceSessionID)
		assert.ErrorIs(t, err, errs.ErrSessionTerminated)
		_, _, err = f.svc.EndSemester(ctx, s.AttendanceSessionID)
		assert.ErrorIs(t, err, errs.ErrSessionTerminated)

		// a new session for the same scope may start
		f.start(t, "A", "4")
	})
}

func TestLegacyStatusesAreTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.start(t, "A", "4")
	require.NoError(t, f.db.Exec(
		"UPDATE attendance_sessions SET attendance_session_status = 'completed' WHERE attendance_session_id = ?",
		s.AttendanceSessionID).Error)

	got, err := f.svc.Get(ctx, s.AttendanceSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionEndedSemester, got.AttendanceSessionStatus)

	_, err = f.svc.Reopen(ctx, s.AttendanceSessionID)
	assert.ErrorIs(t, err, errs.ErrSessionTerminated)

	list, err := f.svc.List(ctx, ListFilter{Status: "ended_semester"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.AttendanceSessionID, list[0].AttendanceSessionID)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.start(t, "A", "4")
	f.clock.Advance(time.Minute)
	b := f.start(t, "B", "4")
	_, _, err := f.svc.StopDaily(ctx, a.AttendanceSessionID)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, ListFilter{InstructorID: "T1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.AttendanceSessionID, all[0].AttendanceSessionID, "newest first")

	active, err := f.svc.List(ctx, ListFilter{Status: "active", Course: "coursex"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.AttendanceSessionID, active[0].AttendanceSessionID)

	_, err = f.svc.List(ctx, ListFilter{Status: "paused"})
	assert.ErrorIs(t, err, errs.ErrInvalidSession)
}
