//go:build darwin

package camera

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

type darwinBackend struct{ tempDir string }

func (d *darwinBackend) captureRaw(ctx context.Context) ([]byte, Format, error) {
	tmpFile := filepath.Join(d.tempDir, "screenshot.jpg")
	// -x: no sound, -t jpg: JPEG format, -m: main display only
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "jpg", "-m", tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("%w: screencapture: %v: %s", errTransient, err, stderr.String())
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errTransient, err)
	}
	os.Remove(tmpFile)
	return data, FormatJPEG, nil
}

func (d *darwinBackend) cleanup() {}

// NewScreen creates the platform screen source.
func NewScreen(rate float64) *Screen {
	dir := newTempDir()
	return newScreen(&darwinBackend{tempDir: dir}, dir, rate)
}
