// file: internals/features/attendance/engine/service/engine.go
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"smart_attendance_backend/internals/configs"
	engineDTO "smart_attendance_backend/internals/features/attendance/engine/dto"
	"smart_attendance_backend/internals/features/attendance/errs"
	recDTO "smart_attendance_backend/internals/features/attendance/recognition/dto"
	recService "smart_attendance_backend/internals/features/attendance/recognition/service"
	recordDTO "smart_attendance_backend/internals/features/attendance/records/dto"
	recordModel "smart_attendance_backend/internals/features/attendance/records/model"
	recordService "smart_attendance_backend/internals/features/attendance/records/service"
	rosterService "smart_attendance_backend/internals/features/attendance/roster/service"
	sessionDTO "smart_attendance_backend/internals/features/attendance/sessions/dto"
	"smart_attendance_backend/internals/features/attendance/sessions/model"
	sessionService "smart_attendance_backend/internals/features/attendance/sessions/service"
	"smart_attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Engine wires normalizer -> state check -> ledger, and fronts the lifecycle.
type Engine struct {
	Sessions   *sessionService.Service
	Ledger     *recordService.Ledger
	Normalizer *recService.Normalizer

	MaxParallel  int
	ReopenWindow time.Duration
	Location     *time.Location
	Now          func() time.Time
}

// New builds the engine on the gorm store with the gorm-backed roster.
func New(db *gorm.DB, cfg configs.EngineConfig) *Engine {
	roster := rosterService.NewGormResolver(db)
	return NewWith(db, roster, roster, cfg)
}

// NewWith takes the roster collaborators explicitly (external roster services, tests).
func NewWith(db *gorm.DB, roster rosterService.Resolver, dir rosterService.Directory, cfg configs.EngineConfig) *Engine {
	ledger := recordService.New(db, roster, cfg)
	return &Engine{
		Sessions:     sessionService.New(db, roster, ledger, cfg),
		Ledger:       ledger,
		Normalizer:   recService.NewNormalizer(cfg.ConfidenceThreshold, dir),
		MaxParallel:  cfg.IngestMaxParallel,
		ReopenWindow: cfg.ReopenWindow,
		Location:     cfg.Location(),
		Now:          time.Now,
	}
}

// SetClock points every component at the same clock.
func (e *Engine) SetClock(now func() time.Time) {
	e.Now = now
	e.Sessions.Now = now
	e.Ledger.Now = now
	e.Normalizer.Now = now
}

/* =========================================================
   ingest
========================================================= */

// Ingest handles one recognition event. Rejections (inactive session, low
// confidence, unknown student) come back as an unaccepted result together with
// the typed error; other errors are failures.
func (e *Engine) Ingest(ctx context.Context, sessionID uuid.UUID, ev recDTO.RecognitionEvent) (engineDTO.IngestResult, error) {
	res := engineDTO.IngestResult{StudentID: ev.StudentID}

	s, err := e.Sessions.Get(ctx, sessionID)
	if err != nil {
		return res, err
	}
	if err := checkIngestable(s); err != nil {
		return e.reject(res, sessionID, err)
	}

	det, err := e.Normalizer.Normalize(ctx, ev)
	if err != nil {
		if errs.IsRejection(err) {
			return e.reject(res, sessionID, err)
		}
		return res, err
	}
	res.StudentID = det.StudentID

	out, err := e.Ledger.RecordPresence(ctx, sessionID, det.StudentID, det.Confidence, det.EventTime)
	if err != nil {
		// the session may have stopped since the check above
		if errs.IsRejection(err) {
			return e.reject(res, sessionID, err)
		}
		return res, err
	}

	rec := recordDTO.FromModel(out.Record, e.Location)
	res.Accepted = true
	res.Outcome = out.Outcome
	res.Record = &rec
	return res, nil
}

func (e *Engine) reject(res engineDTO.IngestResult, sessionID uuid.UUID, err error) (engineDTO.IngestResult, error) {
	res.Accepted = false
	res.Reason = errs.Code(err)
	res.Message = err.Error()
	log.Printf("[engine] 🚫 dropped event session=%s student=%s reason=%s", sessionID, res.StudentID, res.Reason)
	return res, err
}

func checkIngestable(s *model.AttendanceSessionModel) error {
	switch s.AttendanceSessionStatus {
	case model.SessionActive:
		return nil
	case model.SessionEndedSemester:
		return fmt.Errorf("%w: %w", errs.ErrSessionNotActive, errs.ErrSessionTerminated)
	default:
		return fmt.Errorf("%w: %s", errs.ErrSessionNotActive, s.AttendanceSessionStatus)
	}
}

// IngestBatch handles every face of one frame concurrently. Results keep input
// order. Rejections are per event; the first non-rejection failure aborts the batch.
func (e *Engine) IngestBatch(ctx context.Context, sessionID uuid.UUID, events []recDTO.RecognitionEvent) (engineDTO.BatchIngestResponse, error) {
	out := engineDTO.BatchIngestResponse{Results: make([]engineDTO.IngestResult, len(events))}

	if _, err := e.Sessions.Get(ctx, sessionID); err != nil {
		return out, err
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := e.MaxParallel
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range events {
		i := i
		g.Go(func() error {
			res, err := e.Ingest(gctx, sessionID, events[i])
			out.Results[i] = res
			if err != nil && !errs.IsRejection(err) {
				return fmt.Errorf("event %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	for _, r := range out.Results {
		if r.Accepted {
			out.Accepted++
		} else {
			out.Rejected++
		}
	}
	return out, nil
}

/* =========================================================
   lifecycle
========================================================= */

func (e *Engine) StartSession(ctx context.Context, in sessionService.StartInput) (sessionDTO.SessionResponse, error) {
	s, err := e.Sessions.Start(ctx, in)
	if err != nil {
		return sessionDTO.SessionResponse{}, err
	}
	return e.view(s), nil
}

func (e *Engine) StopDailySession(ctx context.Context, id uuid.UUID) (engineDTO.StopResponse, error) {
	s, sum, err := e.Sessions.StopDaily(ctx, id)
	if err != nil {
		return engineDTO.StopResponse{}, err
	}
	return engineDTO.StopResponse{Session: e.view(s), Summary: sum}, nil
}

func (e *Engine) ReopenSession(ctx context.Context, id uuid.UUID) (sessionDTO.SessionResponse, error) {
	s, err := e.Sessions.Reopen(ctx, id)
	if err != nil {
		return sessionDTO.SessionResponse{}, err
	}
	return e.view(s), nil
}

func (e *Engine) EndSemesterSession(ctx context.Context, id uuid.UUID) (engineDTO.EndResponse, error) {
	s, sum, err := e.Sessions.EndSemester(ctx, id)
	if err != nil {
		return engineDTO.EndResponse{}, err
	}
	return engineDTO.EndResponse{Session: e.view(s), Summary: sum}, nil
}

// MarkAbsentees re-runs today's reconciliation; repeated calls change nothing.
func (e *Engine) MarkAbsentees(ctx context.Context, id uuid.UUID) (model.ReconcileSummary, error) {
	return e.Ledger.MarkAbsentees(ctx, id)
}

/* =========================================================
   read side
========================================================= */

func (e *Engine) GetSession(ctx context.Context, id uuid.UUID) (sessionDTO.SessionResponse, error) {
	s, err := e.Sessions.Get(ctx, id)
	if err != nil {
		return sessionDTO.SessionResponse{}, err
	}
	return e.view(s), nil
}

func (e *Engine) ListSessions(ctx context.Context, f sessionService.ListFilter) ([]sessionDTO.SessionResponse, error) {
	rows, err := e.Sessions.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]sessionDTO.SessionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, e.view(&rows[i]))
	}
	return out, nil
}

// SessionAttendance returns the records of one date; empty date means today on campus.
func (e *Engine) SessionAttendance(ctx context.Context, id uuid.UUID, date string) (engineDTO.SessionAttendanceResponse, error) {
	if date == "" {
		date = dbtime.LocalDateOf(e.Now(), e.Location)
	} else if _, err := dbtime.ParseDate(date); err != nil {
		return engineDTO.SessionAttendanceResponse{}, fmt.Errorf("%w: date must be YYYY-MM-DD", errs.ErrInvalidSession)
	}

	s, err := e.Sessions.Get(ctx, id)
	if err != nil {
		return engineDTO.SessionAttendanceResponse{}, err
	}
	rows, err := e.Ledger.Records(ctx, id, date)
	if err != nil {
		return engineDTO.SessionAttendanceResponse{}, err
	}

	out := engineDTO.SessionAttendanceResponse{
		Session: e.view(s),
		Date:    date,
		Records: recordDTO.FromModels(rows, e.Location),
	}
	for _, r := range rows {
		switch r.AttendanceRecordStatus {
		case recordModel.RecordPresent:
			out.PresentCount++
		case recordModel.RecordAbsent:
			out.AbsentCount++
		}
	}
	return out, nil
}

func (e *Engine) view(s *model.AttendanceSessionModel) sessionDTO.SessionResponse {
	return sessionDTO.FromModel(s, e.Now().UTC(), e.ReopenWindow, e.Location)
}
