// Overlay server - runs the detection pipeline and serves the overlay over WebSocket
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/config"
	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	"github.com/GriffinCanCode/camera-overlay/internal/grpcclient"
	"github.com/GriffinCanCode/camera-overlay/internal/pipeline"
	"github.com/GriffinCanCode/camera-overlay/internal/server"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, closeSrc, err := openSource(ctx, cfg)
	if err != nil {
		slog.Error("failed to open frame source", "source", cfg.FrameSource, "error", err)
		os.Exit(1)
	}
	defer closeSrc()

	// Connect to detector gRPC server
	gcfg := grpcclient.DefaultConfig()
	gcfg.MaxSide = cfg.DetectorMaxSide
	client, err := grpcclient.New(cfg.DetectorAddr, gcfg)
	if err != nil {
		slog.Error("failed to connect to detector", "addr", cfg.DetectorAddr, "error", err)
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	det, err := detection.ForVariant(cfg.Variant, client, detection.Options{
		MinConfidence: cfg.MinConfidence,
		PoseEnvelope:  cfg.PoseEnvelope,
	})
	if err != nil {
		slog.Error("failed to build detector", "variant", cfg.Variant, "error", err)
		os.Exit(1)
	}

	hub := server.NewHub()
	pipe := pipeline.New(det, hub, pipeline.Config{
		Native:           transform.Dimensions{Width: float64(cfg.NativeWidth), Height: float64(cfg.NativeHeight)},
		Orientation:      cfg.InitialOrientation,
		Bounds:           transform.Bounds{Width: cfg.ContainerWidth, Height: cfg.ContainerHeight},
		DetectionTimeout: cfg.DetectionTimeout,
		MinConfidence:    cfg.MinConfidence,
	})
	srv := server.New(pipe, hub).WithDetector(client)
	defer srv.Close()

	go func() {
		if err := pipe.Run(ctx, src); err != nil {
			slog.Error("pipeline stopped", "error", err)
			cancel()
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("overlay server starting",
			"http", cfg.HTTPAddr,
			"detector", cfg.DetectorAddr,
			"variant", cfg.Variant,
			"source", cfg.FrameSource)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal or a fatal pipeline error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	pipe.Stop()
	slog.Info("shutdown complete", "stats", pipe.Stats(), "detector", client.Health())
}

// openSource builds the configured frame source. The returned func releases
// the device.
func openSource(ctx context.Context, cfg *config.Config) (camera.Source, func(), error) {
	var (
		src     camera.Source
		release = func() {}
	)
	switch cfg.FrameSource {
	case camera.KindScreen:
		s := camera.NewScreen(cfg.FrameRate)
		if err := s.Probe(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		src, release = s, s.Close
	case camera.KindWebcam:
		w, err := camera.OpenWebcam(cfg.WebcamDevice)
		if err != nil {
			return nil, nil, err
		}
		src, release = w, func() { _ = w.Close() }
	default:
		src = camera.NewPattern(cfg.NativeWidth, cfg.NativeHeight, cfg.FrameRate)
	}

	if w, h := src.NativeSize(); w > 0 && h > 0 && (w != cfg.NativeWidth || h != cfg.NativeHeight) {
		slog.Warn("source size differs from configured native size",
			"source_width", w, "source_height", h,
			"native_width", cfg.NativeWidth, "native_height", cfg.NativeHeight)
	}

	if cfg.StillFrameDistance > 0 {
		src = camera.NewStillFilter(src, cfg.StillFrameDistance)
	}
	return src, release, nil
}
