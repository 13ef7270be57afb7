package detection

import (
	"github.com/golang/geo/r2"

	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// RotatePoint maps a point normalized against the sensor's native frame into
// the frame rotated clockwise by hint.
func RotatePoint(p r2.Point, hint orientation.Hint) r2.Point {
	switch hint.QuarterTurns() {
	case 1:
		return r2.Point{X: 1 - p.Y, Y: p.X}
	case 2:
		return r2.Point{X: 1 - p.X, Y: 1 - p.Y}
	case 3:
		return r2.Point{X: p.Y, Y: 1 - p.X}
	default:
		return p
	}
}

// RotateRect rotates both corners of r and re-normalizes the result.
func RotateRect(r r2.Rect, hint orientation.Hint) r2.Rect {
	return r2.RectFromPoints(RotatePoint(r.Lo(), hint), RotatePoint(r.Hi(), hint))
}
