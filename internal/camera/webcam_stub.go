//go:build !gocv

package camera

import (
	"context"

	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
)

// Webcam requires building with -tags gocv.
type Webcam struct{}

// OpenWebcam always fails without OpenCV support.
func OpenWebcam(id int) (*Webcam, error) {
	return nil, apperr.Newf(apperr.CodeAcquisitionFailure, "webcam %d unavailable: built without gocv", id).
		WithMetadata("source", string(KindWebcam))
}

func (*Webcam) NativeSize() (int, int) { return 0, 0 }

func (*Webcam) Run(context.Context, func(Frame)) error {
	return apperr.New(apperr.CodeAcquisitionFailure, "webcam unavailable: built without gocv")
}

func (*Webcam) Close() error { return nil }
