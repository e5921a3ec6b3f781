// file: internals/features/attendance/sessions/model/session_model.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

/*
=========================================================

	Enums
	=========================================================
*/
type SessionStatus string

const (
	SessionActive        SessionStatus = "active"
	SessionStoppedDaily  SessionStatus = "stopped_daily"
	SessionEndedSemester SessionStatus = "ended_semester"
)

// ParseSessionStatus maps stored values onto the closed set. The legacy
// "completed" and "ended" rows are read as ended_semester.
func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return SessionActive, nil
	case "stopped_daily":
		return SessionStoppedDaily, nil
	case "ended_semester", "completed", "ended":
		return SessionEndedSemester, nil
	}
	return "", fmt.Errorf("unknown session status %q", raw)
}

func (s SessionStatus) IsTerminal() bool { return s == SessionEndedSemester }

func (s *SessionStatus) Scan(v any) error {
	var raw string
	switch x := v.(type) {
	case string:
		raw = x
	case []byte:
		raw = string(x)
	case nil:
		*s = ""
		return nil
	default:
		return fmt.Errorf("session status: unsupported type %T", v)
	}
	st, err := ParseSessionStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s SessionStatus) Value() (driver.Value, error) { return string(s), nil }

type SessionType string

const (
	SessionTypeLab    SessionType = "lab"
	SessionTypeTheory SessionType = "theory"
)

type TimeBlock string

const (
	TimeBlockMorning   TimeBlock = "morning"
	TimeBlockAfternoon TimeBlock = "afternoon"
)

/*
=========================================================

	Model
	=========================================================
*/
type AttendanceSessionModel struct {
	// PK
	AttendanceSessionID uuid.UUID `gorm:"type:uuid;primaryKey;column:attendance_session_id" json:"attendance_session_id"`

	AttendanceSessionName string `gorm:"type:varchar(160);not null;column:attendance_session_name" json:"attendance_session_name"`

	// Scope (course, section, year are stored normalized)
	AttendanceSessionCourse       string `gorm:"type:varchar(160);not null;default:'';column:attendance_session_course" json:"attendance_session_course"`
	AttendanceSessionSection      string `gorm:"type:varchar(40);not null;column:attendance_session_section" json:"attendance_session_section"`
	AttendanceSessionYear         string `gorm:"type:varchar(20);not null;column:attendance_session_year" json:"attendance_session_year"`
	AttendanceSessionInstructorID string `gorm:"type:varchar(64);not null;column:attendance_session_instructor_id;index:idx_attendance_sessions_instructor" json:"attendance_session_instructor_id"`

	AttendanceSessionType      SessionType `gorm:"type:varchar(16);not null;default:'theory';column:attendance_session_type" json:"attendance_session_type"`
	AttendanceSessionTimeBlock TimeBlock   `gorm:"type:varchar(16);not null;default:'morning';column:attendance_session_time_block" json:"attendance_session_time_block"`

	// Lifecycle
	AttendanceSessionStatus        SessionStatus `gorm:"type:varchar(20);not null;default:'active';column:attendance_session_status;index:idx_attendance_sessions_status" json:"attendance_session_status"`
	AttendanceSessionStartedAt     time.Time     `gorm:"not null;column:attendance_session_started_at" json:"attendance_session_started_at"`
	AttendanceSessionLastStoppedAt *time.Time    `gorm:"column:attendance_session_last_stopped_at" json:"attendance_session_last_stopped_at,omitempty"`
	AttendanceSessionEndedAt       *time.Time    `gorm:"column:attendance_session_ended_at" json:"attendance_session_ended_at,omitempty"`
	AttendanceSessionReopenCount   int           `gorm:"not null;default:0;column:attendance_session_reopen_count" json:"attendance_session_reopen_count"`

	// Last absent reconciliation (ReconcileSummary as JSON)
	AttendanceSessionLastReconcile datatypes.JSON `gorm:"column:attendance_session_last_reconcile" json:"attendance_session_last_reconcile,omitempty"`

	// Audit
	AttendanceSessionCreatedAt time.Time `gorm:"autoCreateTime;column:attendance_session_created_at" json:"attendance_session_created_at"`
	AttendanceSessionUpdatedAt time.Time `gorm:"autoUpdateTime;column:attendance_session_updated_at" json:"attendance_session_updated_at"`
}

func (AttendanceSessionModel) TableName() string { return "attendance_sessions" }

// ReopenDeadline is last_stopped_at + window; zero when the session was never stopped.
func (m *AttendanceSessionModel) ReopenDeadline(window time.Duration) time.Time {
	if m.AttendanceSessionLastStoppedAt == nil {
		return time.Time{}
	}
	return m.AttendanceSessionLastStoppedAt.Add(window)
}

// CanReopen reports whether a stopped_daily session is still inside the reopen window.
func (m *AttendanceSessionModel) CanReopen(now time.Time, window time.Duration) bool {
	if m.AttendanceSessionStatus != SessionStoppedDaily || m.AttendanceSessionLastStoppedAt == nil {
		return false
	}
	return now.Sub(*m.AttendanceSessionLastStoppedAt) <= window
}

/*
=========================================================

	Reconciliation summary
	=========================================================
*/
type ReconcileSummary struct {
	Date         string    `json:"date"`
	RosterSize   int       `json:"roster_size"`
	PresentCount int       `json:"present_count"`
	AbsentCount  int       `json:"absent_count"`
	NewlyMarked  int       `json:"newly_marked"`
	ReconciledAt time.Time `json:"reconciled_at"`
}

func (s ReconcileSummary) JSON() datatypes.JSON {
	b, _ := json.Marshal(s)
	return datatypes.JSON(b)
}

// LastReconcile decodes the stored summary; ok is false when none was recorded.
func (m *AttendanceSessionModel) LastReconcile() (ReconcileSummary, bool) {
	var out ReconcileSummary
	if len(m.AttendanceSessionLastReconcile) == 0 {
		return out, false
	}
	if err := json.Unmarshal(m.AttendanceSessionLastReconcile, &out); err != nil {
		return out, false
	}
	return out, true
}
