// file: internals/features/attendance/sessions/service/state_machine.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smart_attendance_backend/internals/configs"
	"smart_attendance_backend/internals/features/attendance/errs"
	rosterService "smart_attendance_backend/internals/features/attendance/roster/service"
	"smart_attendance_backend/internals/features/attendance/sessions/model"
	"smart_attendance_backend/internals/helpers/dbtime"
	"smart_attendance_backend/internals/helpers/yearfmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reconciler commits the absent set for a locked session inside the caller's tx.
type Reconciler interface {
	ReconcileInTx(ctx context.Context, tx *gorm.DB, s *model.AttendanceSessionModel, roster rosterService.Roster, date string) (model.ReconcileSummary, error)
}

type StartInput struct {
	Name         string
	Course       string
	Section      string
	Year         string
	InstructorID string
	Type         model.SessionType
	TimeBlock    model.TimeBlock
}

type ListFilter struct {
	InstructorID string
	Status       string
	Course       string
}

// Service owns the session lifecycle. Every transition runs under FOR UPDATE on
// the session row.
type Service struct {
	DB         *gorm.DB
	Roster     rosterService.Resolver
	Reconciler Reconciler

	ReopenWindow     time.Duration
	ReconcileTimeout time.Duration
	Location         *time.Location
	Now              func() time.Time
}

func New(db *gorm.DB, roster rosterService.Resolver, rec Reconciler, cfg configs.EngineConfig) *Service {
	return &Service{
		DB:               db,
		Roster:           roster,
		Reconciler:       rec,
		ReopenWindow:     cfg.ReopenWindow,
		ReconcileTimeout: cfg.ReconcileTimeout,
		Location:         cfg.Location(),
		Now:              time.Now,
	}
}

func (s *Service) now() time.Time { return s.Now().UTC() }

/* =========================================================
   start
========================================================= */

func (s *Service) Start(ctx context.Context, in StartInput) (*model.AttendanceSessionModel, error) {
	in.Course = yearfmt.NormalizeCourse(in.Course)
	in.Section = yearfmt.NormalizeSection(in.Section)
	in.Year = yearfmt.NormalizeYear(in.Year)
	if in.Section == "" || in.Year == "" || in.InstructorID == "" {
		return nil, fmt.Errorf("%w: section, year and instructor_id are required", errs.ErrInvalidSession)
	}
	if in.Type == "" {
		in.Type = model.SessionTypeTheory
	}
	if in.TimeBlock == "" {
		in.TimeBlock = model.TimeBlockMorning
	}
	if in.Type != model.SessionTypeLab && in.Type != model.SessionTypeTheory {
		return nil, fmt.Errorf("%w: session_type %q", errs.ErrInvalidSession, in.Type)
	}
	if in.TimeBlock != model.TimeBlockMorning && in.TimeBlock != model.TimeBlockAfternoon {
		return nil, fmt.Errorf("%w: time_block %q", errs.ErrInvalidSession, in.TimeBlock)
	}

	now := s.now()
	if in.Name == "" {
		in.Name = "Session " + dbtime.ToCampusTime(now, s.Location).Format("2006-01-02 15:04")
	}

	row := model.AttendanceSessionModel{
		AttendanceSessionID:           uuid.New(),
		AttendanceSessionName:         in.Name,
		AttendanceSessionCourse:       in.Course,
		AttendanceSessionSection:      in.Section,
		AttendanceSessionYear:         in.Year,
		AttendanceSessionInstructorID: in.InstructorID,
		AttendanceSessionType:         in.Type,
		AttendanceSessionTimeBlock:    in.TimeBlock,
		AttendanceSessionStatus:       model.SessionActive,
		AttendanceSessionStartedAt:    now,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNoActive(tx, in.Course, in.Section, in.Year, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			if errs.IsDuplicateKey(err) {
				return errs.ErrConflict
			}
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[session] ▶️ started %s course=%q section=%s year=%q instructor=%s",
		row.AttendanceSessionID, row.AttendanceSessionCourse, row.AttendanceSessionSection,
		row.AttendanceSessionYear, row.AttendanceSessionInstructorID)
	return &row, nil
}

/* =========================================================
   stop (daily)
========================================================= */

// StopDaily commits today's absentees and moves active -> stopped_daily in one
// transaction. A failed reconciliation leaves the session active.
func (s *Service) StopDaily(ctx context.Context, id uuid.UUID) (*model.AttendanceSessionModel, model.ReconcileSummary, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, model.ReconcileSummary{}, err
	}
	if err := requireActive(cur); err != nil {
		return nil, model.ReconcileSummary{}, err
	}
	roster, err := s.resolve(ctx, cur)
	if err != nil {
		return nil, model.ReconcileSummary{}, err
	}

	var (
		out *model.AttendanceSessionModel
		sum model.ReconcileSummary
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := requireActive(locked); err != nil {
			return err
		}

		now := s.now()
		sum, err = s.Reconciler.ReconcileInTx(ctx, tx, locked, roster, dbtime.LocalDateOf(now, s.Location))
		if err != nil {
			return err
		}
		if err := tx.Model(&model.AttendanceSessionModel{}).
			Where("attendance_session_id = ?", id).
			Updates(map[string]any{
				"attendance_session_status":          model.SessionStoppedDaily,
				"attendance_session_last_stopped_at": now,
			}).Error; err != nil {
			return fmt.Errorf("stop session: %w", err)
		}
		out, err = reload(tx, id)
		return err
	})
	if err != nil {
		return nil, model.ReconcileSummary{}, err
	}

	log.Printf("[session] ⏸️ stopped %s present=%d absent=%d", id, sum.PresentCount, sum.AbsentCount)
	return out, sum, nil
}

/* =========================================================
   reopen
========================================================= */

func (s *Service) Reopen(ctx context.Context, id uuid.UUID) (*model.AttendanceSessionModel, error) {
	var out *model.AttendanceSessionModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := lockForUpdate(tx, id)
		if err != nil {
			return err
		}
		switch cur.AttendanceSessionStatus {
		case model.SessionEndedSemester:
			return errs.ErrSessionTerminated
		case model.SessionActive:
			return fmt.Errorf("%w: session is already active", errs.ErrInvalidTransition)
		}

		now := s.now()
		if !cur.CanReopen(now, s.ReopenWindow) {
			return fmt.Errorf("%w: stopped at %s", errs.ErrReopenWindowExpired,
				dbtime.ToCampusTimePtr(cur.AttendanceSessionLastStoppedAt, s.Location))
		}
		if err := ensureNoActive(tx, cur.AttendanceSessionCourse, cur.AttendanceSessionSection, cur.AttendanceSessionYear, id); err != nil {
			return err
		}
		if err := tx.Model(&model.AttendanceSessionModel{}).
			Where("attendance_session_id = ?", id).
			Updates(map[string]any{
				"attendance_session_status":       model.SessionActive,
				"attendance_session_reopen_count": gorm.Expr("attendance_session_reopen_count + 1"),
			}).Error; err != nil {
			if errs.IsDuplicateKey(err) {
				return errs.ErrConflict
			}
			return fmt.Errorf("reopen session: %w", err)
		}
		out, err = reload(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[session] 🔁 reopened %s (reopen #%d)", id, out.AttendanceSessionReopenCount)
	return out, nil
}

/* =========================================================
   end (semester)
========================================================= */

// EndSemester closes the session for good. An active session gets a final absent
// pass; a stopped one already committed its absentees at its stop.
func (s *Service) EndSemester(ctx context.Context, id uuid.UUID) (*model.AttendanceSessionModel, *model.ReconcileSummary, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if cur.AttendanceSessionStatus.IsTerminal() {
		return nil, nil, errs.ErrSessionTerminated
	}
	var roster rosterService.Roster
	if cur.AttendanceSessionStatus == model.SessionActive {
		if roster, err = s.resolve(ctx, cur); err != nil {
			return nil, nil, err
		}
	}

	var (
		out *model.AttendanceSessionModel
		sum *model.ReconcileSummary
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockForUpdate(tx, id)
		if err != nil {
			return err
		}
		if locked.AttendanceSessionStatus.IsTerminal() {
			return errs.ErrSessionTerminated
		}

		now := s.now()
		updates := map[string]any{
			"attendance_session_status":   model.SessionEndedSemester,
			"attendance_session_ended_at": now,
		}
		if locked.AttendanceSessionStatus == model.SessionActive {
			// reopened after the unlocked read; no roster was resolved
			if roster == nil {
				return fmt.Errorf("%w: session became active concurrently, retry", errs.ErrInvalidTransition)
			}
			res, err := s.Reconciler.ReconcileInTx(ctx, tx, locked, roster, dbtime.LocalDateOf(now, s.Location))
			if err != nil {
				return err
			}
			sum = &res
			updates["attendance_session_last_stopped_at"] = now
		}
		if err := tx.Model(&model.AttendanceSessionModel{}).
			Where("attendance_session_id = ?", id).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		out, err = reload(tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[session] ⏹️ ended %s for the semester", id)
	return out, sum, nil
}

/* =========================================================
   read
========================================================= */

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.AttendanceSessionModel, error) {
	var m model.AttendanceSessionModel
	err := s.DB.WithContext(ctx).Take(&m, "attendance_session_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &m, nil
}

// List returns sessions newest first. Status "ended_semester" also matches the
// legacy completed/ended rows.
func (s *Service) List(ctx context.Context, f ListFilter) ([]model.AttendanceSessionModel, error) {
	q := s.DB.WithContext(ctx).Model(&model.AttendanceSessionModel{})
	if f.InstructorID != "" {
		q = q.Where("attendance_session_instructor_id = ?", f.InstructorID)
	}
	if f.Course != "" {
		q = q.Where("LOWER(attendance_session_course) = LOWER(?)", yearfmt.NormalizeCourse(f.Course))
	}
	if f.Status != "" {
		st, err := model.ParseSessionStatus(f.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSession, err)
		}
		if st == model.SessionEndedSemester {
			q = q.Where("attendance_session_status IN ?", []string{"ended_semester", "completed", "ended"})
		} else {
			q = q.Where("attendance_session_status = ?", st)
		}
	}

	var out []model.AttendanceSessionModel
	if err := q.Order("attendance_session_started_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

/* =========================================================
   helpers
========================================================= */

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.ReconcileTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.ReconcileTimeout)
}

func (s *Service) resolve(ctx context.Context, m *model.AttendanceSessionModel) (rosterService.Roster, error) {
	roster, err := s.Roster.Resolve(ctx, m.AttendanceSessionCourse, m.AttendanceSessionSection, m.AttendanceSessionYear)
	if err != nil {
		return nil, fmt.Errorf("resolve roster: %w", err)
	}
	return roster, nil
}

func requireActive(m *model.AttendanceSessionModel) error {
	switch m.AttendanceSessionStatus {
	case model.SessionActive:
		return nil
	case model.SessionEndedSemester:
		return errs.ErrSessionTerminated
	default:
		return fmt.Errorf("%w: %s", errs.ErrSessionNotActive, m.AttendanceSessionStatus)
	}
}

func ensureNoActive(tx *gorm.DB, course, section, year string, except uuid.UUID) error {
	var n int64
	q := tx.Model(&model.AttendanceSessionModel{}).
		Where("attendance_session_course = ? AND attendance_session_section = ? AND attendance_session_year = ?", course, section, year).
		Where("attendance_session_status = ?", model.SessionActive)
	if except != uuid.Nil {
		q = q.Where("attendance_session_id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check active sessions: %w", err)
	}
	if n > 0 {
		return errs.ErrConflict
	}
	return nil
}

func lockForUpdate(tx *gorm.DB, id uuid.UUID) (*model.AttendanceSessionModel, error) {
	var m model.AttendanceSessionModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&m, "attendance_session_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return &m, nil
}

func reload(tx *gorm.DB, id uuid.UUID) (*model.AttendanceSessionModel, error) {
	var m model.AttendanceSessionModel
	if err := tx.Take(&m, "attendance_session_id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	return &m, nil
}
