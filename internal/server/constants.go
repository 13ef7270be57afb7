// Package server exposes the overlay to rendering clients over HTTP and
// WebSocket.
package server

import "time"

const (
	// Per-connection inbound rate limit (sliding window).
	RateLimitMessages = 20
	RateLimitWindow   = time.Second

	// Outbound messages queued per client before new ones are dropped.
	ClientSendBuffer = 32

	// Deadline for a single websocket write.
	WriteTimeout = 2 * time.Second

	// Captions returned by /api/caption.
	CaptionHistoryLimit = 10
)
