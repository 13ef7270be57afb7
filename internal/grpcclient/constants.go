// Package grpcclient runs detector variants out of process: a client that
// implements every native estimator interface over gRPC, and the service
// that hosts an estimator behind it.
package grpcclient

import "time"

// Wire identifiers for the detector service.
const (
	ServiceName  = "overlay.v1.Detector"
	DetectMethod = "/" + ServiceName + "/Detect"

	VariantKey = "x-detector-variant"
	HintKey    = "x-orientation-hint"
)

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Frames whose longer side exceeds this are downscaled before sending.
	DefaultMaxSide = 640

	DefaultJPEGQuality = 80

	// Largest request the service accepts.
	MaxFrameBytes = 8 << 20
)
