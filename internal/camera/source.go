package camera

import (
	"context"
	"strings"

	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
)

// Source delivers frames at its native rate.
type Source interface {
	// Run calls onFrame for every captured frame until ctx is done. It
	// returns an ACQUISITION_FAILURE error when the device cannot deliver
	// frames, and nil on cancellation.
	Run(ctx context.Context, onFrame func(Frame)) error

	// NativeSize is the sensor's unrotated output size.
	NativeSize() (width, height int)
}

// Kind names a configurable source.
type Kind string

const (
	KindPattern Kind = "pattern"
	KindScreen  Kind = "screen"
	KindWebcam  Kind = "webcam"
)

// ParseKind validates a source name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindPattern, KindScreen, KindWebcam:
		return k, nil
	}
	return "", apperr.Newf(apperr.CodeInvalidArgument, "unknown frame source %q", s)
}
