// Detector daemon - serves the in-process estimators over gRPC
package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/camera-overlay/internal/config"
	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	"github.com/GriffinCanCode/camera-overlay/internal/grpcclient"
)

// highlightThreshold matches the bright square drawn by the pattern source.
const highlightThreshold = 200

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	natives := []any{detection.Highlight{Threshold: highlightThreshold}}
	faces, err := detection.NewCascadeFaceLocator(cfg.CascadePath)
	if err != nil {
		slog.Warn("face variant disabled", "cascade", cfg.CascadePath, "error", err)
	} else {
		defer func() { _ = faces.Close() }()
		natives = append(natives, faces)
	}
	codes, err := detection.NewQRCodeReader()
	if err != nil {
		slog.Warn("barcode variant disabled", "error", err)
	} else {
		defer func() { _ = codes.Close() }()
		natives = append(natives, codes)
	}

	lis, err := net.Listen("tcp", cfg.DetectordAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.DetectordAddr, "error", err)
		os.Exit(1)
	}

	srv := grpcclient.NewServer()
	svc := grpcclient.RegisterDetectorServer(srv, natives...)

	var served []detection.Variant
	for _, v := range detection.Variants {
		if svc.Supports(v) {
			served = append(served, v)
		}
	}

	go func() {
		slog.Info("detector daemon starting", "addr", cfg.DetectordAddr, "variants", served)
		if err := srv.Serve(lis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	srv.GracefulStop()
	slog.Info("shutdown complete")
}
