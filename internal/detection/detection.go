// Package detection defines the common detection model and adapts each
// detector variant's native results to it.
//
// All geometry is normalized to [0,1] against the displayed orientation.
// Values outside that range are kept; clamping is not this package's job.
package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// Kind is the geometric shape of a Detection.
type Kind int

const (
	KindPoint Kind = iota
	KindRectangle
	KindLabeledRectangle
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindRectangle:
		return "rectangle"
	case KindLabeledRectangle:
		return "labeledRectangle"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Detection is one normalized result. Point is set for KindPoint, Rect for
// the rectangle kinds.
type Detection struct {
	Kind       Kind
	Point      r2.Point
	Rect       r2.Rect
	Label      string
	Confidence float64

	// Subject groups pose joints and their envelope.
	Subject int
	Joint   string
}

// Caption is a global label not drawn as geometry.
type Caption struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of one detection pass.
type Result struct {
	Detections []Detection
	Caption    *Caption
}

// Detector runs one frame through a model. Implementations must be safe to
// call from the detection goroutine while no other call is in flight.
type Detector interface {
	Detect(ctx context.Context, frame camera.Frame, hint orientation.Hint) (Result, error)
	Variant() Variant
}

// Variant names a detector family.
type Variant string

const (
	VariantBarcode    Variant = "barcode"
	VariantFace       Variant = "face"
	VariantPose       Variant = "pose"
	VariantObject     Variant = "object"
	VariantClassifier Variant = "classifier"
)

// Variants lists every supported variant.
var Variants = []Variant{VariantBarcode, VariantFace, VariantPose, VariantObject, VariantClassifier}

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(s))
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", apperr.Newf(apperr.CodeInvalidArgument, "unknown detector variant %q", s)
}

// Captions reports whether the variant drives the caption display. For these
// variants a pass without a caption clears it.
func (v Variant) Captions() bool {
	return v == VariantBarcode || v == VariantClassifier
}

// Filter returns the detections whose confidence is above floor. Anything at
// or below zero is always dropped. The input slice is not modified.
func Filter(dets []Detection, floor float64) []Detection {
	floor = max(floor, 0)
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence > floor {
			out = append(out, d)
		}
	}
	return out
}

// Envelope returns the min/max rectangle around points.
func Envelope(points []r2.Point) r2.Rect {
	if len(points) == 0 {
		return r2.EmptyRect()
	}
	return r2.RectFromPoints(points...)
}
