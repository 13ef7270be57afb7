//go:build !linux && !darwin

package camera

import (
	"context"
	"errors"
	"runtime"
)

type unsupportedBackend struct{}

func (unsupportedBackend) captureRaw(context.Context) ([]byte, Format, error) {
	return nil, "", errors.New("screen capture not supported on " + runtime.GOOS)
}

func (unsupportedBackend) cleanup() {}

// NewScreen creates the platform screen source.
func NewScreen(rate float64) *Screen {
	return newScreen(unsupportedBackend{}, "", rate)
}
