package server

import (
	"errors"

	"github.com/GriffinCanCode/camera-overlay/internal/caption"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/overlay"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

// Message types.
const (
	TypeOverlay     = "overlay"
	TypeCaption     = "caption"
	TypeOrientation = "orientation"
	TypeLayout      = "layout"
	TypeError       = "error"
)

// Message is the envelope every message shares.
type Message struct {
	Type string `json:"type"`
}

// TransformMessage is a container transform as sent to clients. Matrix is
// (a, b, c, d, tx, ty).
type TransformMessage struct {
	Rotation   float64    `json:"rotation"`
	ScaleX     float64    `json:"scaleX"`
	ScaleY     float64    `json:"scaleY"`
	Scale      float64    `json:"scale"`
	MirrorY    bool       `json:"mirrorY"`
	Degenerate bool       `json:"degenerate,omitempty"`
	Matrix     [6]float64 `json:"matrix"`
}

func transformMessage(t transform.Transform) *TransformMessage {
	m := t.Matrix()
	return &TransformMessage{
		Rotation:   t.RotationRadians,
		ScaleX:     t.ScaleX,
		ScaleY:     t.ScaleY,
		Scale:      t.Scale(),
		MirrorY:    t.MirrorY,
		Degenerate: t.Degenerate,
		Matrix:     [6]float64{m.A, m.B, m.C, m.D, m.TX, m.TY},
	}
}

// OverlayMessage replaces the client's primitives, its transform, or both.
// A nil Primitives field leaves the client's primitives as they are; an
// empty one clears them.
type OverlayMessage struct {
	Type       string               `json:"type"`
	Sequence   uint64               `json:"sequence"`
	Primitives *[]overlay.Primitive `json:"primitives,omitempty"`
	Transform  *TransformMessage    `json:"transform,omitempty"`
	Animated   bool                 `json:"animated"`
}

// CaptionMessage carries the caption display. Cleared is set when no
// caption is shown.
type CaptionMessage struct {
	Type       string  `json:"type"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Variant    string  `json:"variant,omitempty"`
	Cleared    bool    `json:"cleared,omitempty"`
}

func captionMessage(e *caption.Entry) CaptionMessage {
	if e == nil {
		return CaptionMessage{Type: TypeCaption, Cleared: true}
	}
	return CaptionMessage{Type: TypeCaption, Label: e.Label, Confidence: e.Confidence, Variant: e.Variant}
}

// OrientationMessage reports an interface orientation change.
type OrientationMessage struct {
	Type        string `json:"type"`
	Orientation string `json:"orientation"`
	TraceID     string `json:"trace_id,omitempty"`
}

// LayoutMessage reports new container bounds in screen points.
type LayoutMessage struct {
	Type    string  `json:"type"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	TraceID string  `json:"trace_id,omitempty"`
}

// ErrorMessage reports a rejected inbound message.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func errorMessage(err error) ErrorMessage {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return ErrorMessage{Type: TypeError, Code: appErr.Code.String(), Message: appErr.Message}
	}
	return ErrorMessage{Type: TypeError, Message: err.Error()}
}
