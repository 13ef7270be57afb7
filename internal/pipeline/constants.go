package pipeline

import "time"

const (
	// Upper bound on a single detector call before the pass is treated as
	// having found nothing.
	DefaultDetectionTimeout = 500 * time.Millisecond

	// Orientation and layout events waiting for the presentation goroutine.
	EventBuffer = 16

	// Caption display.
	CaptionMaxEntries  = 30
	CaptionEventBuffer = 100
)
