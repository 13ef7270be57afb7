package pipeline

import "sync/atomic"

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	FramesReceived     uint64 `json:"framesReceived"`
	FramesDropped      uint64 `json:"framesDropped"`
	Passes             uint64 `json:"passes"`
	DetectionFailures  uint64 `json:"detectionFailures"`
	StaleCompletions   uint64 `json:"staleCompletions"`
	OrientationIgnored uint64 `json:"orientationIgnored"`

	// Completions replaced in the handoff slot before presentation took
	// them. They are neither passes nor stale.
	CompletionsOverwritten uint64 `json:"completionsOverwritten"`
	// Frames the source discarded as unchanged, when it counts them.
	FramesSkipped uint64 `json:"framesSkipped"`
}

type counters struct {
	received, dropped, passes, failures, stale, ignored atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesReceived:     c.received.Load(),
		FramesDropped:      c.dropped.Load(),
		Passes:             c.passes.Load(),
		DetectionFailures:  c.failures.Load(),
		StaleCompletions:   c.stale.Load(),
		OrientationIgnored: c.ignored.Load(),
	}
}
