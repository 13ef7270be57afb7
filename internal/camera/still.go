package camera

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/corona10/goimagehash"
)

// StillFilter drops frames whose perceptual hash is within MaxDistance of the
// last forwarded frame. A static scene then costs no detection passes.
type StillFilter struct {
	Source
	MaxDistance int

	lastHash *goimagehash.ImageHash
	skipped  atomic.Uint64
}

// NewStillFilter wraps src. maxDistance <= 0 disables filtering.
func NewStillFilter(src Source, maxDistance int) *StillFilter {
	return &StillFilter{Source: src, MaxDistance: maxDistance}
}

// Run implements Source.
func (s *StillFilter) Run(ctx context.Context, onFrame func(Frame)) error {
	if s.MaxDistance <= 0 {
		return s.Source.Run(ctx, onFrame)
	}
	return s.Source.Run(ctx, func(f Frame) {
		if s.still(f) {
			s.skipped.Add(1)
			return
		}
		onFrame(f)
	})
}

// Skipped returns how many frames were dropped as unchanged.
func (s *StillFilter) Skipped() uint64 { return s.skipped.Load() }

// still is only called from the source goroutine.
func (s *StillFilter) still(f Frame) bool {
	img, err := f.Decode()
	if err != nil {
		return false
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	if s.lastHash == nil {
		s.lastHash = hash
		return false
	}

	dist, err := s.lastHash.Distance(hash)
	if err != nil {
		s.lastHash = hash
		return false
	}
	if dist <= s.MaxDistance {
		slog.Debug("skipping still frame", "seq", f.Seq, "distance", dist)
		return true
	}

	s.lastHash = hash
	return false
}
