//go:build gocv

package detection

import (
	"context"
	"sync"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// CascadeFaceLocator finds faces with an OpenCV Haar cascade. Cascades report
// no score, so every face has confidence 1.
type CascadeFaceLocator struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewCascadeFaceLocator loads the cascade XML at path.
func NewCascadeFaceLocator(path string) (*CascadeFaceLocator, error) {
	c := gocv.NewCascadeClassifier()
	if !c.Load(path) {
		c.Close()
		return nil, apperr.Newf(apperr.CodeUnavailable, "load cascade %s", path)
	}
	return &CascadeFaceLocator{classifier: c}, nil
}

// LocateFaces implements FaceLocator.
func (l *CascadeFaceLocator) LocateFaces(_ context.Context, frame camera.Frame, hint orientation.Hint) ([]Face, error) {
	mat, err := toMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	l.mu.Lock()
	rects := l.classifier.DetectMultiScale(mat)
	l.mu.Unlock()

	w, h := float64(mat.Cols()), float64(mat.Rows())
	faces := make([]Face, 0, len(rects))
	for _, r := range rects {
		norm := r2.RectFromPoints(
			r2.Point{X: float64(r.Min.X) / w, Y: float64(r.Min.Y) / h},
			r2.Point{X: float64(r.Max.X) / w, Y: float64(r.Max.Y) / h},
		)
		faces = append(faces, Face{Bounds: RotateRect(norm, hint), Confidence: 1})
	}
	return faces, nil
}

// Close releases the cascade.
func (l *CascadeFaceLocator) Close() error {
	return l.classifier.Close()
}

func toMat(frame camera.Frame) (gocv.Mat, error) {
	switch frame.Format {
	case camera.FormatJPEG, camera.FormatPNG:
		return gocv.IMDecode(frame.Data, gocv.IMReadColor)
	case camera.FormatRGBA:
		rgba, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC4, frame.Data)
		if err != nil {
			return gocv.Mat{}, err
		}
		defer rgba.Close()
		bgr := gocv.NewMat()
		gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
		return bgr, nil
	}
	return gocv.Mat{}, apperr.Newf(apperr.CodeInvalidArgument, "unsupported frame format %q", frame.Format)
}
