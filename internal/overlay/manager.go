package overlay

import (
	"time"

	"github.com/GriffinCanCode/camera-overlay/internal/syncx"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

// Surface is the rendering side of the overlay container. Primitive sets and
// transforms are replaced wholesale; the surface never patches them.
type Surface interface {
	// DisableActions suspends implicit animation until EnableActions.
	DisableActions()
	EnableActions()
	SetPrimitives(ps []Primitive)
	SetTransform(t transform.Transform)
}

// Snapshot is the committed overlay state.
type Snapshot struct {
	Generation  uint64              `json:"generation"`
	Primitives  []Primitive         `json:"primitives"`
	Transform   transform.Transform `json:"transform"`
	CommittedAt time.Time           `json:"committedAt"`
}

// Manager owns the primitive list and container transform. BeginPass,
// AddPrimitive, CommitPass and ApplyTransform belong to the presentation
// goroutine; Snapshot is safe from anywhere.
type Manager struct {
	surface Surface

	pending []Primitive
	open    bool

	state *syncx.Cell[Snapshot]
}

// NewManager creates a manager drawing to surface with initial transform t.
// A nil surface is allowed for headless use.
func NewManager(surface Surface, t transform.Transform) *Manager {
	if surface == nil {
		surface = nopSurface{}
	}
	return &Manager{
		surface: surface,
		state:   syncx.NewCell(Snapshot{Primitives: []Primitive{}, Transform: t}),
	}
}

// BeginPass starts collecting primitives for a new pass, discarding anything
// added since the last commit.
func (m *Manager) BeginPass() {
	m.pending = m.pending[:0:0]
	m.open = true
}

// AddPrimitive appends p to the open pass. Outside a pass it is ignored.
func (m *Manager) AddPrimitive(p Primitive) {
	if !m.open {
		return
	}
	m.pending = append(m.pending, p)
}

// CommitPass replaces the full primitive list with the pass, reapplies the
// current transform, and returns the new snapshot. A pass with no primitives
// clears the overlay. Commit without BeginPass commits an empty pass.
func (m *Manager) CommitPass() Snapshot {
	ps := m.pending
	if ps == nil {
		ps = []Primitive{}
	}
	m.pending, m.open = nil, false

	cur := m.state.Load()
	next := Snapshot{
		Generation:  cur.Generation + 1,
		Primitives:  ps,
		Transform:   cur.Transform,
		CommittedAt: time.Now(),
	}

	m.withoutActions(func() {
		m.surface.SetPrimitives(ps)
		m.surface.SetTransform(next.Transform)
	})
	m.state.Store(next)
	return next
}

// Commit runs a whole pass over ps.
func (m *Manager) Commit(ps []Primitive) Snapshot {
	m.BeginPass()
	for _, p := range ps {
		m.AddPrimitive(p)
	}
	return m.CommitPass()
}

// ApplyTransform replaces the container transform without touching the
// primitives. It is animated like any other UI change.
func (m *Manager) ApplyTransform(t transform.Transform) {
	m.state.Modify(func(s *Snapshot) bool {
		s.Transform = t
		return true
	})
	m.surface.SetTransform(t)
}

// Snapshot returns the committed state. The primitive slice must not be
// modified.
func (m *Manager) Snapshot() Snapshot {
	return m.state.Load()
}

// withoutActions runs fn with implicit animation suspended. Actions are
// re-enabled even if fn panics.
func (m *Manager) withoutActions(fn func()) {
	m.surface.DisableActions()
	defer m.surface.EnableActions()
	fn()
}

type nopSurface struct{}

func (nopSurface) DisableActions()                  {}
func (nopSurface) EnableActions()                   {}
func (nopSurface) SetPrimitives([]Primitive)        {}
func (nopSurface) SetTransform(transform.Transform) {}
