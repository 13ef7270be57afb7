// Package syncx provides the small concurrency primitives the pipeline
// shares between its detection and presentation goroutines.
package syncx

import "sync"

// Cell holds a value-typed snapshot owned by one writer and read from
// anywhere. Every change bumps Version, so readers can tell two snapshots
// apart without comparing them.
type Cell[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// NewCell creates a cell holding initial at version 0.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Load returns a copy of the current value.
func (c *Cell[T]) Load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Version counts the changes applied so far.
func (c *Cell[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Store replaces the value unconditionally.
func (c *Cell[T]) Store(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.version++
}

// Modify hands fn a copy of the value under the write lock. If fn reports a
// change the copy is installed and Modify returns true. fn must not mutate
// memory shared with the old value, such as slice backing arrays.
func (c *Cell[T]) Modify(fn func(v *T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.value
	if !fn(&next) {
		return false
	}
	c.value = next
	c.version++
	return true
}
