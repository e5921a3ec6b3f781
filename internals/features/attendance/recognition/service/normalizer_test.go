package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart_attendance_backend/internals/features/attendance/errs"
	recDTO "smart_attendance_backend/internals/features/attendance/recognition/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory map[string]bool

func (f fakeDirectory) KnownStudent(_ context.Context, code string) (bool, error) {
	if code == "BROKEN" {
		return false, errors.New("directory down")
	}
	return f[code], nil
}

func conf(v float64) *float64 { return &v }

func newTestNormalizer() *Normalizer {
	n := NewNormalizer(0.60, fakeDirectory{"S1": true, "S2": true})
	n.Now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return n
}

func TestNormalize_Accepts(t *testing.T) {
	n := newTestNormalizer()
	at := time.Date(2026, 3, 2, 11, 30, 0, 0, time.FixedZone("EAT", 3*3600))

	got, err := n.Normalize(context.Background(), recDTO.RecognitionEvent{
		StudentID:  "  S1 ",
		Confidence: conf(0.75),
		CapturedAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, "S1", got.StudentID)
	assert.Equal(t, 0.75, got.Confidence)
	assert.Equal(t, time.UTC, got.EventTime.Location())
	assert.True(t, got.EventTime.Equal(at))
}

func TestNormalize_DefaultsCapturedAtToNow(t *testing.T) {
	n := newTestNormalizer()
	got, err := n.Normalize(context.Background(), recDTO.RecognitionEvent{StudentID: "S2", Confidence: conf(0.60)})
	require.NoError(t, err)
	assert.Equal(t, n.Now(), got.EventTime)
}

func TestNormalize_Rejections(t *testing.T) {
	n := newTestNormalizer()

	cases := []struct {
		name string
		ev   recDTO.RecognitionEvent
		want error
	}{
		{"below threshold", recDTO.RecognitionEvent{StudentID: "S2", Confidence: conf(0.55)}, errs.ErrLowConfidence},
		{"unknown student", recDTO.RecognitionEvent{StudentID: "S404", Confidence: conf(0.90)}, errs.ErrUnknownStudent},
		{"missing id", recDTO.RecognitionEvent{StudentID: "  ", Confidence: conf(0.90)}, errs.ErrInvalidEvent},
		{"missing confidence", recDTO.RecognitionEvent{StudentID: "S1"}, errs.ErrInvalidEvent},
		{"confidence above one", recDTO.RecognitionEvent{StudentID: "S1", Confidence: conf(1.2)}, errs.ErrInvalidEvent},
		{"negative confidence", recDTO.RecognitionEvent{StudentID: "S1", Confidence: conf(-0.1)}, errs.ErrInvalidEvent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), tc.ev)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNormalize_ThresholdCheckedBeforeDirectory(t *testing.T) {
	n := newTestNormalizer()
	_, err := n.Normalize(context.Background(), recDTO.RecognitionEvent{StudentID: "BROKEN", Confidence: conf(0.10)})
	assert.ErrorIs(t, err, errs.ErrLowConfidence)

	_, err = n.Normalize(context.Background(), recDTO.RecognitionEvent{StudentID: "BROKEN", Confidence: conf(0.90)})
	require.Error(t, err)
	assert.False(t, errs.IsRejection(err), "directory failure is not a rejection")
}

func TestNormalize_NilDirectoryAcceptsAnyID(t *testing.T) {
	n := NewNormalizer(0.60, nil)
	got, err := n.Normalize(context.Background(), recDTO.RecognitionEvent{StudentID: "anyone", Confidence: conf(0.61)})
	require.NoError(t, err)
	assert.Equal(t, "anyone", got.StudentID)
}
