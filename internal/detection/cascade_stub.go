//go:build !gocv

package detection

import (
	"context"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// CascadeFaceLocator requires building with -tags gocv.
type CascadeFaceLocator struct{}

// NewCascadeFaceLocator always fails without OpenCV support.
func NewCascadeFaceLocator(string) (*CascadeFaceLocator, error) {
	return nil, apperr.New(apperr.CodeUnavailable, "face cascade unavailable: built without gocv")
}

func (*CascadeFaceLocator) LocateFaces(context.Context, camera.Frame, orientation.Hint) ([]Face, error) {
	return nil, apperr.New(apperr.CodeUnavailable, "face cascade unavailable: built without gocv")
}

func (*CascadeFaceLocator) Close() error { return nil }
