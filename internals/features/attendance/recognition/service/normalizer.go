// file: internals/features/attendance/recognition/service/normalizer.go
package service

import (
	"context"
	"fmt"
	"time"

	"smart_attendance_backend/internals/features/attendance/errs"
	recDTO "smart_attendance_backend/internals/features/attendance/recognition/dto"
	rosterService "smart_attendance_backend/internals/features/attendance/roster/service"

	"github.com/go-playground/validator/v10"
)

// Normalizer turns a raw recognition event into a Detection or a typed rejection.
// It holds no state between calls.
type Normalizer struct {
	Threshold float64
	Directory rosterService.Directory // nil accepts any non-empty id
	Now       func() time.Time

	validate *validator.Validate
}

func NewNormalizer(threshold float64, dir rosterService.Directory) *Normalizer {
	return &Normalizer{
		Threshold: threshold,
		Directory: dir,
		Now:       time.Now,
		validate:  validator.New(),
	}
}

// Normalize checks shape, then threshold, then identity. A missing captured_at
// means "now"; all times leave here in UTC.
func (n *Normalizer) Normalize(ctx context.Context, ev recDTO.RecognitionEvent) (recDTO.Detection, error) {
	ev.Normalize()
	if err := n.validate.Struct(ev); err != nil {
		return recDTO.Detection{}, fmt.Errorf("%w: %v", errs.ErrInvalidEvent, err)
	}

	conf := *ev.Confidence
	if conf < n.Threshold {
		return recDTO.Detection{}, fmt.Errorf("%w: %.2f < %.2f", errs.ErrLowConfidence, conf, n.Threshold)
	}

	if n.Directory != nil {
		ok, err := n.Directory.KnownStudent(ctx, ev.StudentID)
		if err != nil {
			return recDTO.Detection{}, err
		}
		if !ok {
			return recDTO.Detection{}, fmt.Errorf("%w: %s", errs.ErrUnknownStudent, ev.StudentID)
		}
	}

	at := n.Now()
	if ev.CapturedAt != nil && !ev.CapturedAt.IsZero() {
		at = *ev.CapturedAt
	}
	return recDTO.Detection{
		StudentID:  ev.StudentID,
		Confidence: conf,
		EventTime:  at.UTC(),
	}, nil
}
