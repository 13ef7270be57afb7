//go:build gocv

package camera

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"

	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
)

// Webcam reads frames from a local capture device through OpenCV.
type Webcam struct {
	device int

	mu            sync.Mutex
	capture       *gocv.VideoCapture
	width, height int
}

// OpenWebcam opens capture device id.
func OpenWebcam(id int) (*Webcam, error) {
	capture, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeAcquisitionFailure, "open webcam %d", id).
			WithMetadata("source", string(KindWebcam))
	}
	return &Webcam{
		device:  id,
		capture: capture,
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// NativeSize implements Source.
func (w *Webcam) NativeSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Run implements Source. The device paces the loop; Read blocks until the
// next frame.
func (w *Webcam) Run(ctx context.Context, onFrame func(Frame)) error {
	mat := gocv.NewMat()
	defer mat.Close()

	var seq uint64
	for ctx.Err() == nil {
		if ok := w.capture.Read(&mat); !ok || mat.Empty() {
			if ctx.Err() != nil {
				return nil
			}
			return apperr.Newf(apperr.CodeAcquisitionFailure, "webcam %d stopped delivering frames", w.device).
				WithMetadata("source", string(KindWebcam))
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeAcquisitionFailure, "encode webcam frame")
		}
		data := make([]byte, len(buf.GetBytes()))
		copy(data, buf.GetBytes())
		buf.Close()

		seq++
		w.mu.Lock()
		w.width, w.height = mat.Cols(), mat.Rows()
		w.mu.Unlock()

		onFrame(Frame{
			Seq:        seq,
			Data:       data,
			Format:     FormatJPEG,
			Width:      mat.Cols(),
			Height:     mat.Rows(),
			CapturedAt: time.Now(),
		})
	}
	return nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	return w.capture.Close()
}
