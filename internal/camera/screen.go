package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/resilience"
)

// errTransient marks capture failures worth another attempt.
var errTransient = errors.New("transient capture failure")

// backend implements platform-specific raw capture.
type backend interface {
	captureRaw(ctx context.Context) ([]byte, Format, error)
	cleanup()
}

// Screen captures the primary display with the platform screenshot tool.
type Screen struct {
	backend
	tempDir  string
	interval time.Duration
	retry    resilience.RetryConfig

	mu            sync.Mutex
	width, height int
	seq           uint64
}

func newScreen(b backend, tempDir string, rate float64) *Screen {
	if rate <= 0 {
		rate = 1
	}
	return &Screen{
		backend:  b,
		tempDir:  tempDir,
		interval: time.Duration(float64(time.Second) / rate),
		retry:    resilience.CaptureRetryConfig(func(err error) bool { return errors.Is(err, errTransient) }),
	}
}

func newTempDir() string {
	dir, err := os.MkdirTemp("", "camera-overlay-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		return os.TempDir()
	}
	return dir
}

// Probe takes one capture to learn the display size.
func (s *Screen) Probe(ctx context.Context) error {
	_, err := s.capture(ctx)
	return err
}

// NativeSize implements Source. It is zero until a capture has succeeded.
func (s *Screen) NativeSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Run implements Source.
func (s *Screen) Run(ctx context.Context, onFrame func(Frame)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f, err := s.capture(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			onFrame(f)
		}
	}
}

func (s *Screen) capture(ctx context.Context) (Frame, error) {
	type shot struct {
		data   []byte
		format Format
	}
	raw, err := resilience.Do(ctx, s.retry, func(ctx context.Context) (shot, error) {
		data, format, err := s.captureRaw(ctx)
		return shot{data, format}, err
	})
	data, format := raw.data, raw.format
	if err != nil {
		return Frame{}, apperr.Wrap(err, apperr.CodeAcquisitionFailure, "screen capture failed").
			WithMetadata("source", string(KindScreen))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Frame{}, apperr.Wrap(err, apperr.CodeAcquisitionFailure, "unreadable screenshot").
			WithMetadata("source", string(KindScreen))
	}

	s.mu.Lock()
	s.width, s.height = cfg.Width, cfg.Height
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return Frame{
		Seq:        seq,
		Data:       data,
		Format:     format,
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: time.Now(),
	}, nil
}

// Close removes the temp directory.
func (s *Screen) Close() {
	s.cleanup()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}
