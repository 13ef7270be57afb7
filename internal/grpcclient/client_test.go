package grpcclient

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
	"github.com/GriffinCanCode/camera-overlay/internal/resilience"
)

// recordingPoser is a PoseEstimator that records what reached it.
type recordingPoser struct {
	mu    sync.Mutex
	calls int
	hint  orientation.Hint
	frame camera.Frame
	poses []detection.Pose
	err   error
}

func (p *recordingPoser) EstimatePoses(_ context.Context, f camera.Frame, h orientation.Hint) ([]detection.Pose, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.hint, p.frame = h, f
	return p.poses, p.err
}

func startServer(t *testing.T, native any, cfg Config) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer()
	RegisterDetectorServer(srv, native)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	c, err := New("passthrough:///bufnet", cfg, dialer)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.KeepaliveTime = 0
	return cfg
}

func callCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPoseRoundTrip(t *testing.T) {
	native := &recordingPoser{poses: []detection.Pose{{Joints: []detection.Joint{
		{Name: "nose", Location: r2.Point{X: 0.25, Y: 0.5}, Confidence: 0.9},
		{Name: "leftAnkle", Location: r2.Point{X: 1.1, Y: -0.05}, Confidence: 0.3},
	}}}}
	c := startServer(t, native, testConfig())

	frame := camera.NewPattern(64, 48, 30).Next()
	poses, err := c.EstimatePoses(callCtx(t), frame, orientation.HintLeft)
	if err != nil {
		t.Fatal(err)
	}

	if len(poses) != 1 || len(poses[0].Joints) != 2 {
		t.Fatalf("poses = %+v", poses)
	}
	j := poses[0].Joints[1]
	if j.Name != "leftAnkle" || j.Location != (r2.Point{X: 1.1, Y: -0.05}) || j.Confidence != 0.3 {
		t.Errorf("joint = %+v, values should survive the wire exactly", j)
	}
	if native.hint != orientation.HintLeft {
		t.Errorf("hint = %v, want %v", native.hint, orientation.HintLeft)
	}
	if native.frame.Width != 64 || native.frame.Height != 48 || native.frame.Format != camera.FormatJPEG {
		t.Errorf("server frame = %s %dx%d, want jpeg 64x48", native.frame.Format, native.frame.Width, native.frame.Height)
	}
}

func TestLargeFramesDownscaled(t *testing.T) {
	native := &recordingPoser{}
	cfg := testConfig()
	cfg.MaxSide = 32
	c := startServer(t, native, cfg)

	if _, err := c.EstimatePoses(callCtx(t), camera.NewPattern(64, 48, 30).Next(), orientation.HintUp); err != nil {
		t.Fatal(err)
	}
	if native.frame.Width != 32 || native.frame.Height != 24 {
		t.Errorf("server frame = %dx%d, want 32x24", native.frame.Width, native.frame.Height)
	}
}

func TestSmallEncodedFramesForwarded(t *testing.T) {
	native := &recordingPoser{}
	c := startServer(t, native, testConfig())

	img := image.NewGray(image.Rect(0, 0, 10, 8))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	frame := camera.Frame{Data: buf.Bytes(), Format: camera.FormatPNG, Width: 10, Height: 8}

	if _, err := c.EstimatePoses(callCtx(t), frame, orientation.HintUp); err != nil {
		t.Fatal(err)
	}
	if native.frame.Format != camera.FormatPNG || !bytes.Equal(native.frame.Data, frame.Data) {
		t.Errorf("server frame = %s (%d bytes), want the original png", native.frame.Format, len(native.frame.Data))
	}
}

func TestHighlightOverTheWire(t *testing.T) {
	c := startServer(t, detection.Highlight{Threshold: 200}, testConfig())

	objs, err := c.RecognizeObjects(callCtx(t), camera.NewPattern(100, 100, 30).Next(), orientation.HintUp)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 {
		t.Fatalf("objects = %d, want 1", len(objs))
	}
	// The first pattern frame has a 20px square at the origin; allow for
	// JPEG edge loss.
	b := objs[0].Bounds
	if math.Abs(b.X.Lo) > 0.03 || math.Abs(b.Y.Lo) > 0.03 || math.Abs(b.X.Hi-0.2) > 0.03 || math.Abs(b.Y.Hi-0.2) > 0.03 {
		t.Errorf("Bounds = %v, want about (0,0)-(0.2,0.2)", b)
	}
}

func TestUnsupportedVariant(t *testing.T) {
	c := startServer(t, detection.Highlight{Threshold: 200}, testConfig())

	_, err := c.Classify(callCtx(t), camera.NewPattern(16, 16, 30).Next(), orientation.HintUp)
	if !apperr.IsCode(err, apperr.CodeDetectionFailure) {
		t.Fatalf("Classify() = %v, want DETECTION_FAILURE", err)
	}

	var remote *apperr.AppError
	if !errors.As(errors.Unwrap(err), &remote) || remote.Code != apperr.CodeInvalidArgument {
		t.Errorf("remote cause = %v, want INVALID_ARGUMENT", errors.Unwrap(err))
	}
}

func TestRemoteFailureOpensBreaker(t *testing.T) {
	native := &recordingPoser{err: errors.New("model crashed")}
	cfg := testConfig()
	cfg.Breaker = resilience.Config{Threshold: 2, ResetTimeout: time.Hour, HalfOpenSuccesses: 1}
	c := startServer(t, native, cfg)
	frame := camera.NewPattern(16, 16, 30).Next()

	for i := 0; i < 2; i++ {
		_, err := c.EstimatePoses(callCtx(t), frame, orientation.HintUp)
		if !apperr.IsCode(err, apperr.CodeDetectionFailure) {
			t.Fatalf("call %d error = %v, want DETECTION_FAILURE", i, err)
		}
	}
	if c.BreakerState() != resilience.Open {
		t.Fatalf("breaker = %v, want open", c.BreakerState())
	}
	if h := c.Health(); h.Breaker != resilience.Open.String() || h.Rejected != 0 {
		t.Errorf("Health() = %+v, want open with 0 rejected", h)
	}

	_, err := c.EstimatePoses(callCtx(t), frame, orientation.HintUp)
	if !errors.Is(err, resilience.ErrOpen) || !apperr.IsCode(err, apperr.CodeDetectionFailure) {
		t.Errorf("open breaker error = %v, want DETECTION_FAILURE wrapping ErrOpen", err)
	}
	if native.calls != 2 {
		t.Errorf("native calls = %d, want 2 (open breaker fails fast)", native.calls)
	}
	if h := c.Health(); h.Rejected != 1 {
		t.Errorf("Health().Rejected = %d, want 1", h.Rejected)
	}
}

func TestAdapterOverClient(t *testing.T) {
	native := &recordingPoser{poses: []detection.Pose{{Joints: []detection.Joint{
		{Name: "a", Location: r2.Point{X: 0.1, Y: 0.1}, Confidence: 0.9},
		{Name: "b", Location: r2.Point{X: 0.5, Y: 0.5}, Confidence: 0},
		{Name: "c", Location: r2.Point{X: 0.3, Y: 0.2}, Confidence: 0.4},
	}}}}
	c := startServer(t, native, testConfig())

	d, err := detection.ForVariant(detection.VariantPose, c, detection.Options{PoseEnvelope: true})
	if err != nil {
		t.Fatal(err)
	}
	res, err := d.Detect(callCtx(t), camera.NewPattern(16, 16, 30).Next(), orientation.HintRight)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Detections) != 3 {
		t.Errorf("detections = %d, want 2 points and 1 envelope", len(res.Detections))
	}
}

func TestServiceRejectsMissingVariant(t *testing.T) {
	svc := &Service{natives: []any{detection.Highlight{}}}
	_, err := svc.Detect(context.Background(), nil)
	if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("Detect() = %v, want INVALID_ARGUMENT", err)
	}
}

func TestSupports(t *testing.T) {
	svc := &Service{natives: []any{detection.Highlight{}}}
	for _, v := range detection.Variants {
		if got, want := svc.Supports(v), v == detection.VariantObject; got != want {
			t.Errorf("Supports(%s) = %v, want %v", v, got, want)
		}
	}
}

// fixedReader is a BarcodeReader returning one code.
type fixedReader struct{}

func (fixedReader) ReadBarcodes(context.Context, camera.Frame, orientation.Hint) ([]detection.Barcode, error) {
	return []detection.Barcode{{Payload: "hello", Symbology: "qr", Corners: []r2.Point{{X: 0.1, Y: 0.1}, {X: 0.4, Y: 0.1}, {X: 0.4, Y: 0.4}, {X: 0.1, Y: 0.4}}}}, nil
}

func TestServiceHostsSeveralNatives(t *testing.T) {
	svc := &Service{natives: []any{detection.Highlight{}, fixedReader{}}}
	for _, v := range detection.Variants {
		want := v == detection.VariantObject || v == detection.VariantBarcode
		if got := svc.Supports(v); got != want {
			t.Errorf("Supports(%s) = %v, want %v", v, got, want)
		}
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewServer()
	RegisterDetectorServer(srv, detection.Highlight{Threshold: 200}, fixedReader{})
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	c, err := New("passthrough:///bufnet", testConfig(), grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })

	codes, err := c.ReadBarcodes(callCtx(t), camera.NewPattern(16, 16, 30).Next(), orientation.HintUp)
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 1 || codes[0].Payload != "hello" || len(codes[0].Corners) != 4 {
		t.Errorf("ReadBarcodes() = %+v, want one code with 4 corners", codes)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.KeepaliveTime != 10*time.Second {
		t.Errorf("KeepaliveTime = %v, want 10s", cfg.KeepaliveTime)
	}
	if cfg.MaxSide != DefaultMaxSide {
		t.Errorf("MaxSide = %d, want %d", cfg.MaxSide, DefaultMaxSide)
	}
	if cfg.Breaker.Threshold != resilience.DetectorThreshold {
		t.Errorf("Breaker.Threshold = %d, want %d", cfg.Breaker.Threshold, resilience.DetectorThreshold)
	}
}
