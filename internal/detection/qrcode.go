package detection

import (
	"github.com/golang/geo/r2"

	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// SymbologyQR names codes read by QRCodeReader.
const SymbologyQR = "qr"

// qrCorners turns interleaved pixel coordinates (x0, y0, x1, y1, ...) from a
// w by h frame into normalized corners rotated by hint. A trailing odd value
// is ignored.
func qrCorners(xy []float32, w, h float64, hint orientation.Hint) []r2.Point {
	if w <= 0 || h <= 0 || len(xy) < 2 {
		return nil
	}
	corners := make([]r2.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		p := r2.Point{X: float64(xy[i]) / w, Y: float64(xy[i+1]) / h}
		corners = append(corners, RotatePoint(p, hint))
	}
	return corners
}
