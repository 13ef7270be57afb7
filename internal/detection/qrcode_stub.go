//go:build !gocv

package detection

import (
	"context"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// QRCodeReader requires building with -tags gocv.
type QRCodeReader struct{}

// NewQRCodeReader always fails without OpenCV support.
func NewQRCodeReader() (*QRCodeReader, error) {
	return nil, apperr.New(apperr.CodeUnavailable, "qr reader unavailable: built without gocv")
}

func (*QRCodeReader) ReadBarcodes(context.Context, camera.Frame, orientation.Hint) ([]Barcode, error) {
	return nil, apperr.New(apperr.CodeUnavailable, "qr reader unavailable: built without gocv")
}

func (*QRCodeReader) Close() error { return nil }
