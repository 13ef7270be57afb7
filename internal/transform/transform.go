// Package transform maps detector-normalized coordinates into sensor buffer
// pixels, and buffer pixels onto the overlay container.
//
// Both mappings are pure. A Transform is a value: it is replaced, never
// mutated, so it can be shared across goroutines without locking.
package transform

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Swapped returns d with width and height exchanged.
func (d Dimensions) Swapped() Dimensions {
	return Dimensions{Width: d.Height, Height: d.Width}
}

// Degenerate reports whether either side is zero, negative or non-finite.
func (d Dimensions) Degenerate() bool {
	return !positive(d.Width) || !positive(d.Height)
}

// Center returns the midpoint of a rectangle of size d anchored at the origin.
func (d Dimensions) Center() r2.Point {
	return r2.Point{X: d.Width / 2, Y: d.Height / 2}
}

// Bounds is the size of the overlay container in screen points.
type Bounds = Dimensions

// Transform places the buffer-space overlay container on screen.
type Transform struct {
	RotationRadians float64 `json:"rotation"`
	ScaleX          float64 `json:"scaleX"`
	ScaleY          float64 `json:"scaleY"`
	MirrorY         bool    `json:"mirrorY"`

	// Pivot is the buffer-space point that lands on Anchor.
	Pivot  r2.Point `json:"-"`
	Anchor r2.Point `json:"-"`

	// Degenerate is set when the inputs could not produce a finite scale and
	// the unit fallback was substituted.
	Degenerate bool `json:"degenerate"`
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// New derives the container transform for a logical buffer of size dims,
// rotated by rotation radians and aspect-filled into bounds.
//
// Buffer width maps onto screen height and buffer height onto screen width:
// the sensor is mounted a quarter turn from the display.
func New(dims Dimensions, rotation float64, bounds Bounds) Transform {
	t := Transform{
		RotationRadians: rotation,
		MirrorY:         true,
		Pivot:           dims.Center(),
		Anchor:          bounds.Center(),
	}
	if dims.Degenerate() || bounds.Degenerate() {
		t.ScaleX, t.ScaleY, t.Degenerate = 1, 1, true
		t.Pivot, t.Anchor = finite(t.Pivot), finite(t.Anchor)
		return t
	}
	t.ScaleX = bounds.Width / dims.Height
	t.ScaleY = bounds.Height / dims.Width
	if !positive(t.ScaleX) || !positive(t.ScaleY) {
		t.ScaleX, t.ScaleY, t.Degenerate = 1, 1, true
	}
	return t
}

// Scale is the uniform aspect-fill factor, always finite.
func (t Transform) Scale() float64 {
	s := math.Max(t.ScaleX, t.ScaleY)
	if !positive(s) {
		return 1
	}
	return s
}

// Affine is a 2x3 matrix in the (a, b, c, d, tx, ty) convention:
// x' = a*x + c*y + tx, y' = b*x + d*y + ty.
type Affine struct {
	A, B, C, D, TX, TY float64
}

// Apply maps p through m.
func (m Affine) Apply(p r2.Point) r2.Point {
	return r2.Point{
		X: m.A*p.X + m.C*p.Y + m.TX,
		Y: m.B*p.X + m.D*p.Y + m.TY,
	}
}

// Matrix folds rotation, uniform scale, mirror and the pivot/anchor
// translation into a single affine for the rendering surface.
func (t Transform) Matrix() Affine {
	s := t.Scale()
	sin, cos := math.Sincos(t.RotationRadians)
	m := 1.0
	if t.MirrorY {
		m = -1
	}
	a := Affine{A: s * cos, B: m * s * sin, C: -s * sin, D: m * s * cos}
	p := a.Apply(t.Pivot)
	a.TX = t.Anchor.X - p.X
	a.TY = t.Anchor.Y - p.Y
	return a
}

// NormalizedToBuffer scales a [0,1] point to buffer pixels. Values outside
// the unit square pass through unclamped.
func NormalizedToBuffer(p r2.Point, dims Dimensions) r2.Point {
	return r2.Point{X: p.X * dims.Width, Y: p.Y * dims.Height}
}

// BufferToNormalized is the inverse of NormalizedToBuffer. A zero dimension
// maps its axis to zero.
func BufferToNormalized(p r2.Point, dims Dimensions) r2.Point {
	var out r2.Point
	if dims.Width != 0 {
		out.X = p.X / dims.Width
	}
	if dims.Height != 0 {
		out.Y = p.Y / dims.Height
	}
	return out
}

// NormalizedRectToBuffer scales both corners of r.
func NormalizedRectToBuffer(r r2.Rect, dims Dimensions) r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: r.X.Lo * dims.Width, Hi: r.X.Hi * dims.Width},
		Y: r1.Interval{Lo: r.Y.Lo * dims.Height, Hi: r.Y.Hi * dims.Height},
	}
}

// BufferToScreen rotates p about the container center, applies the uniform
// scale, then mirrors vertically when MirrorY is set.
func BufferToScreen(p r2.Point, t Transform) r2.Point {
	d := p.Sub(t.Pivot)
	sin, cos := math.Sincos(t.RotationRadians)
	d = r2.Point{X: d.X*cos - d.Y*sin, Y: d.X*sin + d.Y*cos}
	d = d.Mul(t.Scale())
	if t.MirrorY {
		d.Y = -d.Y
	}
	return d.Add(t.Anchor)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// finite zeroes any non-finite coordinate.
func finite(p r2.Point) r2.Point {
	if math.IsInf(p.X, 0) || math.IsNaN(p.X) {
		p.X = 0
	}
	if math.IsInf(p.Y, 0) || math.IsNaN(p.Y) {
		p.Y = 0
	}
	return p
}
