//go:build gocv

package detection

import (
	"context"
	"sync"

	"gocv.io/x/gocv"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// QRCodeReader decodes at most one QR code per frame with OpenCV.
type QRCodeReader struct {
	mu       sync.Mutex
	detector gocv.QRCodeDetector
}

// NewQRCodeReader creates a reader.
func NewQRCodeReader() (*QRCodeReader, error) {
	return &QRCodeReader{detector: gocv.NewQRCodeDetector()}, nil
}

// ReadBarcodes implements BarcodeReader. A code that is located but cannot be
// decoded is not reported.
func (r *QRCodeReader) ReadBarcodes(_ context.Context, frame camera.Frame, hint orientation.Hint) ([]Barcode, error) {
	mat, err := toMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	r.mu.Lock()
	payload := r.detector.DetectAndDecode(mat, &points, &straight)
	r.mu.Unlock()

	if payload == "" || points.Empty() {
		return nil, nil
	}
	xy, err := points.DataPtrFloat32()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDetectionFailure, "read qr corners")
	}
	corners := qrCorners(xy, float64(mat.Cols()), float64(mat.Rows()), hint)
	return []Barcode{{Payload: payload, Symbology: SymbologyQR, Corners: corners}}, nil
}

// Close releases the detector.
func (r *QRCodeReader) Close() error {
	return r.detector.Close()
}
