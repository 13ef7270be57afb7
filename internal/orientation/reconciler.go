package orientation

import (
	"math"

	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/syncx"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

// Rotation returns the container rotation for a mapped orientation. The
// sensor sits a quarter turn from the display, so every mapped orientation
// is an odd multiple of π/2.
func Rotation(o Orientation) float64 {
	switch o {
	case PortraitUpsideDown, LandscapeLeft:
		return -math.Pi / 2
	default:
		return math.Pi / 2
	}
}

// State is one immutable snapshot of pipeline-wide orientation state.
type State struct {
	Orientation Orientation          `json:"orientation"`
	Native      transform.Dimensions `json:"native"`
	Dims        transform.Dimensions `json:"buffer"`
	Bounds      transform.Bounds     `json:"bounds"`
	Hint        Hint                 `json:"-"`
	Transform   transform.Transform  `json:"transform"`
}

func (s State) derive() State {
	s.Hint, _ = HintFor(s.Orientation)
	s.Transform = transform.New(s.Dims, Rotation(s.Orientation), s.Bounds)
	return s
}

// Reconciler owns orientation, logical buffer dimensions and the container
// transform. OnOrientationChanged and OnLayout are its only mutators and must
// be called from the presentation goroutine; State may be read from anywhere.
type Reconciler struct {
	state *syncx.Cell[State]
}

// NewReconciler seeds buffer dimensions from the sensor's native format. An
// unmapped initial orientation falls back to Portrait; a landscape initial
// orientation swaps the native dimensions once.
func NewReconciler(native transform.Dimensions, initial Orientation, bounds transform.Bounds) *Reconciler {
	if !initial.Mapped() {
		initial = Portrait
	}
	dims := native
	if initial.IsLandscape() {
		dims = native.Swapped()
	}
	s := State{Orientation: initial, Native: native, Dims: dims, Bounds: bounds}.derive()
	return &Reconciler{state: syncx.NewCell(s)}
}

// State returns the current snapshot.
func (r *Reconciler) State() State {
	return r.state.Load()
}

// OnOrientationChanged applies o. It reports whether anything changed.
// Unmapped orientations leave the previous state in effect and return an
// ORIENTATION_UNMAPPED error for the caller to log.
func (r *Reconciler) OnOrientationChanged(o Orientation) (bool, error) {
	if !o.Mapped() {
		return false, apperr.Newf(apperr.CodeOrientationUnmapped, "orientation %s has no mapping", o).
			WithMetadata("orientation", o.String())
	}

	return r.state.Modify(func(s *State) bool {
		if s.Orientation == o {
			return false
		}
		if s.Orientation.IsLandscape() != o.IsLandscape() {
			s.Dims = s.Dims.Swapped()
		}
		s.Orientation = o
		*s = s.derive()
		return true
	}), nil
}

// OnLayout records new container bounds and recomputes the transform.
func (r *Reconciler) OnLayout(b transform.Bounds) bool {
	return r.state.Modify(func(s *State) bool {
		if s.Bounds == b {
			return false
		}
		s.Bounds = b
		*s = s.derive()
		return true
	})
}
