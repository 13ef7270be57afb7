package grpcclient

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"time"

	"github.com/nfnt/resize"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
	"github.com/GriffinCanCode/camera-overlay/internal/resilience"
	"github.com/GriffinCanCode/camera-overlay/internal/trace"
)

// Config holds client settings.
type Config struct {
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	MaxSide          int
	JPEGQuality      int
	Breaker          resilience.Config
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		MaxSide:          DefaultMaxSide,
		JPEGQuality:      DefaultJPEGQuality,
		Breaker:          resilience.DetectorConfig(),
	}
}

// Client talks to a remote detector service. It implements every estimator
// interface in package detection; the variant travels in call metadata.
type Client struct {
	conn    *grpc.ClientConn
	cfg     Config
	breaker *resilience.Breaker
}

// New creates a client for addr. Extra options are appended after the
// defaults, so tests can supply a dialer.
func New(addr string, cfg Config, opts ...grpc.DialOption) (*Client, error) {
	if cfg.MaxSide <= 0 {
		cfg.MaxSide = DefaultMaxSide
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
	}
	if cfg.KeepaliveTime > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}))
	}

	conn, err := grpc.NewClient(addr, append(dialOpts, opts...)...)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeUnavailable, "dial detector %s", addr)
	}

	breaker := resilience.New(cfg.Breaker).WithHook(func(from, to resilience.State) {
		trace.Logger(context.Background()).Info("detector breaker state changed", "from", from, "to", to, "addr", addr)
	})
	return &Client{conn: conn, cfg: cfg, breaker: breaker}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Health is the client's view of the remote detector.
type Health struct {
	Breaker  string `json:"breaker"`
	Rejected uint64 `json:"rejected"`
}

// Health reports the breaker state and how many calls it refused.
func (c *Client) Health() Health {
	return Health{Breaker: c.BreakerState().String(), Rejected: c.breaker.Rejected()}
}

func (c *Client) ReadBarcodes(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]detection.Barcode, error) {
	r, err := c.detect(ctx, detection.VariantBarcode, frame, hint)
	return r.Barcodes, err
}

func (c *Client) LocateFaces(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]detection.Face, error) {
	r, err := c.detect(ctx, detection.VariantFace, frame, hint)
	return r.Faces, err
}

func (c *Client) EstimatePoses(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]detection.Pose, error) {
	r, err := c.detect(ctx, detection.VariantPose, frame, hint)
	return r.Poses, err
}

func (c *Client) RecognizeObjects(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]detection.Object, error) {
	r, err := c.detect(ctx, detection.VariantObject, frame, hint)
	return r.Objects, err
}

func (c *Client) Classify(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]detection.Class, error) {
	r, err := c.detect(ctx, detection.VariantClassifier, frame, hint)
	return r.Classes, err
}

func (c *Client) detect(ctx context.Context, v detection.Variant, frame camera.Frame, hint orientation.Hint) (response, error) {
	payload, err := c.encodeFrame(frame)
	if err != nil {
		return response{}, apperr.Wrap(err, apperr.CodeDetectionFailure, "encode frame").
			WithMetadata("variant", string(v))
	}

	ctx = metadata.AppendToOutgoingContext(ctx, VariantKey, string(v), HintKey, hint.String())
	out, err := resilience.ExecuteWithResult(c.breaker, func() (*structpb.Struct, error) {
		out := &structpb.Struct{}
		if err := c.conn.Invoke(ctx, DetectMethod, wrapperspb.Bytes(payload), out); err != nil {
			return nil, apperr.FromGRPCError(err)
		}
		return out, nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			return response{}, apperr.Wrap(err, apperr.CodeDetectionFailure, "detector unavailable").
				WithMetadata("variant", string(v))
		}
		return response{}, apperr.Wrap(err, apperr.CodeDetectionFailure, "remote detect failed").
			WithMetadata("variant", string(v))
	}

	r, err := decodeResponse(out)
	if err != nil {
		return response{}, apperr.Wrap(err, apperr.CodeDetectionFailure, "decode detector response").
			WithMetadata("variant", string(v))
	}
	return r, nil
}

// encodeFrame produces the JPEG sent on the wire. Encoded frames already
// within MaxSide are forwarded untouched.
func (c *Client) encodeFrame(f camera.Frame) ([]byte, error) {
	small := f.Width <= c.cfg.MaxSide && f.Height <= c.cfg.MaxSide
	if small && (f.Format == camera.FormatJPEG || f.Format == camera.FormatPNG) {
		return f.Data, nil
	}

	img, err := f.Decode()
	if err != nil {
		return nil, err
	}
	if !small {
		side := uint(c.cfg.MaxSide)
		img = resize.Thumbnail(side, side, img, resize.Bilinear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.cfg.JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
