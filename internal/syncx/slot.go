package syncx

import "sync"

// Slot is a single-value mailbox with overwrite semantics. A Put replaces
// any value not yet taken; the consumer waits on Ready and then calls Take.
// After Close every Put is discarded.
type Slot[T any] struct {
	mu     sync.Mutex
	value  T
	full   bool
	closed bool
	ready  chan struct{}

	overwrites uint64
}

// NewSlot creates an empty open slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ready: make(chan struct{}, 1)}
}

// Put stores v, replacing an untaken value. It reports false if the slot is
// closed and v was discarded.
func (s *Slot[T]) Put(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.full {
		s.overwrites++
	}
	s.value = v
	s.full = true

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return true
}

// Take removes and returns the stored value, if any.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if !s.full || s.closed {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.full = false
	return v, true
}

// Ready signals that a value may be available. Spurious wakeups are possible;
// Take reports whether a value was really there.
func (s *Slot[T]) Ready() <-chan struct{} {
	return s.ready
}

// Close discards any pending value and rejects future puts. Idempotent.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.closed = true
	s.value = zero
	s.full = false
}

// Overwrites returns how many values were replaced before being taken.
func (s *Slot[T]) Overwrites() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overwrites
}
