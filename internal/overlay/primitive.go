// Package overlay owns the renderable primitive set and the container
// transform, and pushes both to a rendering surface one pass at a time.
package overlay

import (
	"fmt"

	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

// Shape is what a primitive draws.
type Shape string

const (
	ShapePoint       Shape = "point"
	ShapeRect        Shape = "rect"
	ShapeLabeledRect Shape = "labeledRect"
)

// Primitive is one shape in buffer-space pixels. Points use X/Y as their
// center; rectangles use X/Y as the top-left corner.
type Primitive struct {
	Shape      Shape   `json:"shape"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
}

func (p Primitive) String() string {
	if p.Shape == ShapePoint {
		return fmt.Sprintf("point(%.1f,%.1f)", p.X, p.Y)
	}
	return fmt.Sprintf("%s(%.1f,%.1f %.1fx%.1f %q)", p.Shape, p.X, p.Y, p.Width, p.Height, p.Label)
}

// FromDetection converts d to buffer space using dims.
func FromDetection(d detection.Detection, dims transform.Dimensions) Primitive {
	switch d.Kind {
	case detection.KindPoint:
		p := transform.NormalizedToBuffer(d.Point, dims)
		return Primitive{Shape: ShapePoint, X: p.X, Y: p.Y, Label: d.Joint, Confidence: d.Confidence}
	default:
		r := transform.NormalizedRectToBuffer(d.Rect, dims)
		shape := ShapeRect
		if d.Kind == detection.KindLabeledRectangle {
			shape = ShapeLabeledRect
		}
		return Primitive{
			Shape:      shape,
			X:          r.X.Lo,
			Y:          r.Y.Lo,
			Width:      r.X.Length(),
			Height:     r.Y.Length(),
			Label:      d.Label,
			Confidence: d.Confidence,
		}
	}
}

// Build converts every detection, in order.
func Build(dets []detection.Detection, dims transform.Dimensions) []Primitive {
	out := make([]Primitive, 0, len(dets))
	for _, d := range dets {
		out = append(out, FromDetection(d, dims))
	}
	return out
}
