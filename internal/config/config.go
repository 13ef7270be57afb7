// Package config loads overlay pipeline configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// EnvFile is read by Load when present. Variables already set win.
const EnvFile = ".env"

type Config struct {
	HTTPAddr      string
	DetectorAddr  string
	DetectordAddr string

	Variant     detection.Variant
	FrameSource camera.Kind
	FrameRate   float64 // Hz

	NativeWidth        int
	NativeHeight       int
	InitialOrientation orientation.Orientation
	ContainerWidth     float64
	ContainerHeight    float64

	DetectionTimeout   time.Duration
	MinConfidence      float64
	PoseEnvelope       bool
	StillFrameDistance int
	DetectorMaxSide    int

	WebcamDevice int
	CascadePath  string
	LogLevel     slog.Level
}

// Load reads EnvFile, if any, then the environment. Unparseable values fall
// back to their defaults; call Validate to reject bad names and sizes.
func Load() *Config {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read env file", "path", EnvFile, "error", err)
	}

	return &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8000"),
		DetectorAddr:       getEnv("DETECTOR_ADDR", "localhost:50051"),
		DetectordAddr:      getEnv("DETECTORD_ADDR", ":50051"),
		Variant:            detection.Variant(strings.ToLower(getEnv("DETECTOR_VARIANT", "object"))),
		FrameSource:        camera.Kind(strings.ToLower(getEnv("FRAME_SOURCE", "pattern"))),
		FrameRate:          getEnvFloat("FRAME_RATE", 30),
		NativeWidth:        getEnvInt("NATIVE_WIDTH", 640),
		NativeHeight:       getEnvInt("NATIVE_HEIGHT", 480),
		InitialOrientation: orientation.Parse(getEnv("INITIAL_ORIENTATION", "portrait")),
		ContainerWidth:     getEnvFloat("CONTAINER_WIDTH", 390),
		ContainerHeight:    getEnvFloat("CONTAINER_HEIGHT", 844),
		DetectionTimeout:   getEnvDuration("DETECTION_TIMEOUT", 500*time.Millisecond),
		MinConfidence:      getEnvFloat("MIN_CONFIDENCE", 0),
		PoseEnvelope:       getEnvBool("POSE_ENVELOPE", true),
		StillFrameDistance: getEnvInt("STILL_FRAME_DISTANCE", 0),
		DetectorMaxSide:    getEnvInt("DETECTOR_MAX_SIDE", 640),
		WebcamDevice:       getEnvInt("WEBCAM_DEVICE", 0),
		CascadePath:        getEnv("CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		LogLevel:           getEnvLevel("LOG_LEVEL", slog.LevelDebug),
	}
}

// Validate reports the first setting the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := detection.ParseVariant(string(c.Variant)); err != nil {
		return apperr.Wrap(err, apperr.CodeInvalidArgument, "DETECTOR_VARIANT").
			WithMetadata("value", string(c.Variant))
	}
	if _, err := camera.ParseKind(string(c.FrameSource)); err != nil {
		return apperr.Wrap(err, apperr.CodeInvalidArgument, "FRAME_SOURCE").
			WithMetadata("value", string(c.FrameSource))
	}
	if c.NativeWidth <= 0 || c.NativeHeight <= 0 {
		return apperr.Newf(apperr.CodeInvalidArgument, "native size %dx%d must be positive", c.NativeWidth, c.NativeHeight)
	}
	if c.FrameRate <= 0 {
		return apperr.Newf(apperr.CodeInvalidArgument, "frame rate %v must be positive", c.FrameRate)
	}
	if c.DetectionTimeout <= 0 {
		return apperr.Newf(apperr.CodeInvalidArgument, "detection timeout %v must be positive", c.DetectionTimeout)
	}
	if c.StillFrameDistance < 0 {
		return apperr.Newf(apperr.CodeInvalidArgument, "still frame distance %d must not be negative", c.StillFrameDistance)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvLevel(key string, def slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return def
}
