// file: internals/features/attendance/records/service/ledger.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smart_attendance_backend/internals/configs"
	"smart_attendance_backend/internals/features/attendance/errs"
	recordModel "smart_attendance_backend/internals/features/attendance/records/model"
	rosterService "smart_attendance_backend/internals/features/attendance/roster/service"
	sessionModel "smart_attendance_backend/internals/features/attendance/sessions/model"
	"smart_attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"   // first presence for the key (also absent -> present)
	OutcomeRefreshed Outcome = "refreshed" // repeat detection inside the fresh window
	OutcomeUpdated   Outcome = "updated"   // repeat detection after the fresh window
)

type PresenceResult struct {
	Record  recordModel.AttendanceRecordModel
	Outcome Outcome
}

// Ledger is the only writer of attendance_records.
type Ledger struct {
	DB     *gorm.DB
	Roster rosterService.Resolver

	Threshold        float64
	FreshWindow      time.Duration
	Location         *time.Location
	BatchSize        int
	ReconcileTimeout time.Duration
	Now              func() time.Time
}

func New(db *gorm.DB, roster rosterService.Resolver, cfg configs.EngineConfig) *Ledger {
	return &Ledger{
		DB:               db,
		Roster:           roster,
		Threshold:        cfg.ConfidenceThreshold,
		FreshWindow:      cfg.FreshWindow,
		Location:         cfg.Location(),
		BatchSize:        cfg.AbsentBatchSize,
		ReconcileTimeout: cfg.ReconcileTimeout,
		Now:              time.Now,
	}
}

func (l *Ledger) now() time.Time { return l.Now().UTC() }

// Today is the attendance date of the current instant in the campus zone.
func (l *Ledger) Today() string { return dbtime.LocalDateOf(l.now(), l.Location) }

/* =========================================================
   Presence
========================================================= */

// One conditional write keyed by (student, session, date). Concurrent events for the
// same key collapse onto one row. Status always becomes present; confidence and
// timestamp follow the newest event time, ties going to the later arrival.
const presenceUpsert = `
INSERT INTO attendance_records (
  attendance_record_id, attendance_record_student_id, attendance_record_session_id, attendance_record_date,
  attendance_record_status, attendance_record_confidence, attendance_record_timestamp, attendance_record_detections,
  attendance_record_instructor_id, attendance_record_course_name, attendance_record_section_id, attendance_record_year,
  attendance_record_created_at, attendance_record_updated_at
) VALUES (?, ?, ?, ?, 'present', ?, ?, 1, ?, ?, ?, ?, ?, ?)
ON CONFLICT (attendance_record_student_id, attendance_record_session_id, attendance_record_date) DO UPDATE SET
  attendance_record_confidence = CASE
    WHEN attendance_records.attendance_record_status <> 'present'
      OR excluded.attendance_record_timestamp >= attendance_records.attendance_record_timestamp
    THEN excluded.attendance_record_confidence
    ELSE attendance_records.attendance_record_confidence END,
  attendance_record_timestamp = CASE
    WHEN attendance_records.attendance_record_status <> 'present'
      OR excluded.attendance_record_timestamp >= attendance_records.attendance_record_timestamp
    THEN excluded.attendance_record_timestamp
    ELSE attendance_records.attendance_record_timestamp END,
  attendance_record_status     = 'present',
  attendance_record_detections = attendance_records.attendance_record_detections + 1,
  attendance_record_updated_at = excluded.attendance_record_updated_at`

// RecordPresence writes a present mark for studentID. The session row is read under
// a shared lock so a concurrent stop waits for in-flight writes and later writes see
// the stopped state.
func (l *Ledger) RecordPresence(ctx context.Context, sessionID uuid.UUID, studentID string, confidence float64, eventTime time.Time) (PresenceResult, error) {
	if confidence < l.Threshold {
		return PresenceResult{}, fmt.Errorf("%w: %.2f < %.2f", errs.ErrLowConfidence, confidence, l.Threshold)
	}
	eventTime = dbtime.UTC(eventTime)
	date := dbtime.LocalDateOf(eventTime, l.Location)

	var out PresenceResult
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := lockSession(tx, sessionID, "SHARE")
		if err != nil {
			return err
		}
		if err := writable(s); err != nil {
			return err
		}

		now := l.now()
		if err := tx.Exec(presenceUpsert,
			uuid.New(), studentID, sessionID, date,
			confidence, eventTime,
			s.AttendanceSessionInstructorID, s.AttendanceSessionCourse, s.AttendanceSessionSection, s.AttendanceSessionYear,
			now, now,
		).Error; err != nil {
			return fmt.Errorf("upsert presence: %w", err)
		}

		rec, err := findRecord(tx, sessionID, studentID, date)
		if err != nil {
			return err
		}
		out = PresenceResult{Record: rec, Outcome: l.classify(rec, now)}
		return nil
	})
	if err != nil {
		return PresenceResult{}, err
	}
	return out, nil
}

func (l *Ledger) classify(rec recordModel.AttendanceRecordModel, now time.Time) Outcome {
	switch {
	case rec.AttendanceRecordDetections <= 1:
		return OutcomeCreated
	case now.Sub(rec.AttendanceRecordCreatedAt) < l.FreshWindow:
		return OutcomeRefreshed
	default:
		return OutcomeUpdated
	}
}

/* =========================================================
   Absentees
========================================================= */

// MarkAbsentees commits absent rows for every rostered student without a record
// today. Safe to run any number of times: existing rows, present or absent, are
// never touched.
func (l *Ledger) MarkAbsentees(ctx context.Context, sessionID uuid.UUID) (sessionModel.ReconcileSummary, error) {
	if l.ReconcileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.ReconcileTimeout)
		defer cancel()
	}

	var scope sessionModel.AttendanceSessionModel
	if err := l.DB.WithContext(ctx).Take(&scope, "attendance_session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sessionModel.ReconcileSummary{}, errs.ErrSessionNotFound
		}
		return sessionModel.ReconcileSummary{}, fmt.Errorf("load session: %w", err)
	}
	if scope.AttendanceSessionStatus.IsTerminal() {
		return sessionModel.ReconcileSummary{}, errs.ErrSessionTerminated
	}

	roster, err := l.Roster.Resolve(ctx, scope.AttendanceSessionCourse, scope.AttendanceSessionSection, scope.AttendanceSessionYear)
	if err != nil {
		return sessionModel.ReconcileSummary{}, err
	}

	var sum sessionModel.ReconcileSummary
	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := lockSession(tx, sessionID, "UPDATE")
		if err != nil {
			return err
		}
		if s.AttendanceSessionStatus.IsTerminal() {
			return errs.ErrSessionTerminated
		}
		sum, err = l.ReconcileInTx(ctx, tx, s, roster, l.Today())
		return err
	})
	return sum, err
}

// ReconcileInTx is the absent pass on an already-locked session. The caller owns
// the transaction; the roster must be resolved before it was opened.
func (l *Ledger) ReconcileInTx(ctx context.Context, tx *gorm.DB, s *sessionModel.AttendanceSessionModel, roster rosterService.Roster, date string) (sessionModel.ReconcileSummary, error) {
	tx = tx.WithContext(ctx)

	var marked []string
	if err := tx.Model(&recordModel.AttendanceRecordModel{}).
		Where("attendance_record_session_id = ? AND attendance_record_date = ?", s.AttendanceSessionID, date).
		Pluck(recordModel.ColStudentID, &marked).Error; err != nil {
		return sessionModel.ReconcileSummary{}, fmt.Errorf("load marked students: %w", err)
	}
	seen := make(map[string]struct{}, len(marked))
	for _, id := range marked {
		seen[id] = struct{}{}
	}

	now := l.now()
	var rows []recordModel.AttendanceRecordModel
	for _, code := range roster.Sorted() {
		if _, ok := seen[code]; ok {
			continue
		}
		rows = append(rows, recordModel.AttendanceRecordModel{
			AttendanceRecordID:           uuid.New(),
			AttendanceRecordStudentID:    code,
			AttendanceRecordSessionID:    s.AttendanceSessionID,
			AttendanceRecordDate:         date,
			AttendanceRecordStatus:       recordModel.RecordAbsent,
			AttendanceRecordTimestamp:    now,
			AttendanceRecordInstructorID: s.AttendanceSessionInstructorID,
			AttendanceRecordCourseName:   s.AttendanceSessionCourse,
			AttendanceRecordSectionID:    s.AttendanceSessionSection,
			AttendanceRecordYear:         s.AttendanceSessionYear,
			AttendanceRecordCreatedAt:    now,
			AttendanceRecordUpdatedAt:    now,
		})
	}

	var inserted int64
	if len(rows) > 0 {
		batch := l.BatchSize
		if batch <= 0 {
			batch = 200
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: recordModel.ColStudentID},
				{Name: recordModel.ColSessionID},
				{Name: recordModel.ColDate},
			},
			DoNothing: true,
		}).CreateInBatches(&rows, batch)
		if res.Error != nil {
			return sessionModel.ReconcileSummary{}, fmt.Errorf("insert absentees: %w", res.Error)
		}
		inserted = res.RowsAffected
	}

	counts, err := countByStatus(tx, s.AttendanceSessionID, date)
	if err != nil {
		return sessionModel.ReconcileSummary{}, err
	}
	sum := sessionModel.ReconcileSummary{
		Date:         date,
		RosterSize:   len(roster),
		PresentCount: counts[recordModel.RecordPresent],
		AbsentCount:  counts[recordModel.RecordAbsent],
		NewlyMarked:  int(inserted),
		ReconciledAt: now,
	}
	if err := tx.Model(&sessionModel.AttendanceSessionModel{}).
		Where("attendance_session_id = ?", s.AttendanceSessionID).
		Update("attendance_session_last_reconcile", sum.JSON()).Error; err != nil {
		return sessionModel.ReconcileSummary{}, fmt.Errorf("store reconcile summary: %w", err)
	}

	log.Printf("[ledger] 🧮 reconciled session=%s date=%s roster=%d present=%d absent=%d new=%d",
		s.AttendanceSessionID, date, sum.RosterSize, sum.PresentCount, sum.AbsentCount, sum.NewlyMarked)
	return sum, nil
}

/* =========================================================
   Read side
========================================================= */

// Records lists the records of one session date, present first.
func (l *Ledger) Records(ctx context.Context, sessionID uuid.UUID, date string) ([]recordModel.AttendanceRecordModel, error) {
	var out []recordModel.AttendanceRecordModel
	if err := l.DB.WithContext(ctx).
		Where("attendance_record_session_id = ? AND attendance_record_date = ?", sessionID, date).
		Order("attendance_record_status DESC, attendance_record_student_id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

// Counts returns present/absent totals for one session date.
func (l *Ledger) Counts(ctx context.Context, sessionID uuid.UUID, date string) (map[recordModel.RecordStatus]int, error) {
	return countByStatus(l.DB.WithContext(ctx), sessionID, date)
}

/* =========================================================
   helpers
========================================================= */

type statusCount struct {
	Status recordModel.RecordStatus `gorm:"column:status"`
	N      int                      `gorm:"column:n"`
}

func countByStatus(db *gorm.DB, sessionID uuid.UUID, date string) (map[recordModel.RecordStatus]int, error) {
	var rows []statusCount
	if err := db.Raw(`
		SELECT attendance_record_status AS status, COUNT(*) AS n
		  FROM attendance_records
		 WHERE attendance_record_session_id = ? AND attendance_record_date = ?
		 GROUP BY attendance_record_status`, sessionID, date).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	out := map[recordModel.RecordStatus]int{
		recordModel.RecordPresent: 0,
		recordModel.RecordAbsent:  0,
	}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func findRecord(tx *gorm.DB, sessionID uuid.UUID, studentID, date string) (recordModel.AttendanceRecordModel, error) {
	var rec recordModel.AttendanceRecordModel
	if err := tx.
		Where("attendance_record_student_id = ? AND attendance_record_session_id = ? AND attendance_record_date = ?",
			studentID, sessionID, date).
		Take(&rec).Error; err != nil {
		return rec, fmt.Errorf("read back record: %w", err)
	}
	return rec, nil
}

// lockSession reads the session row FOR SHARE / FOR UPDATE (ignored by SQLite).
func lockSession(tx *gorm.DB, id uuid.UUID, strength string) (*sessionModel.AttendanceSessionModel, error) {
	var s sessionModel.AttendanceSessionModel
	err := tx.Clauses(clause.Locking{Strength: strength}).
		Take(&s, "attendance_session_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

func writable(s *sessionModel.AttendanceSessionModel) error {
	switch s.AttendanceSessionStatus {
	case sessionModel.SessionActive:
		return nil
	case sessionModel.SessionEndedSemester:
		return fmt.Errorf("%w: %w", errs.ErrSessionNotActive, errs.ErrSessionTerminated)
	default:
		return fmt.Errorf("%w: %s", errs.ErrSessionNotActive, s.AttendanceSessionStatus)
	}
}
