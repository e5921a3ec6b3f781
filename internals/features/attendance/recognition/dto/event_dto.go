package dto

import (
	"strings"
	"time"
)

/* =========================================================
   Inbound: one classified face from the recognition pipeline
========================================================= */

type RecognitionEvent struct {
	StudentID  string     `json:"student_id" validate:"required,max=64"`
	Confidence *float64   `json:"confidence" validate:"required,gte=0,lte=1"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

func (e *RecognitionEvent) Normalize() {
	e.StudentID = strings.TrimSpace(e.StudentID)
}

// BatchRecognitionRequest is every face from one frame.
type BatchRecognitionRequest struct {
	Events []RecognitionEvent `json:"events" validate:"required,min=1,max=64,dive"`
}

/* =========================================================
   Normalized detection handed to the ledger
========================================================= */

type Detection struct {
	StudentID  string    `json:"student_id"`
	Confidence float64   `json:"confidence"`
	EventTime  time.Time `json:"event_time"`
}
