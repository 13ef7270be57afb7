package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/camera-overlay/internal/detection"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
	"github.com/GriffinCanCode/camera-overlay/internal/trace"
)

type detectorServer interface {
	Detect(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
}

var detectorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*detectorServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Detect",
		Handler:    detectHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "overlay/v1/detector.proto",
}

func detectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(detectorServer).Detect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DetectMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(detectorServer).Detect(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Service hosts native estimators behind the detector service. A variant is
// served by the first native that implements its estimator interface.
type Service struct {
	natives []any
}

// RegisterDetectorServer registers natives on s.
func RegisterDetectorServer(s grpc.ServiceRegistrar, natives ...any) *Service {
	svc := &Service{natives: natives}
	s.RegisterService(&detectorServiceDesc, svc)
	return svc
}

func serving[T any](natives []any) (T, bool) {
	for _, n := range natives {
		if e, ok := n.(T); ok {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Supports reports whether a hosted estimator serves v.
func (s *Service) Supports(v detection.Variant) bool {
	var ok bool
	switch v {
	case detection.VariantBarcode:
		_, ok = serving[detection.BarcodeReader](s.natives)
	case detection.VariantFace:
		_, ok = serving[detection.FaceLocator](s.natives)
	case detection.VariantPose:
		_, ok = serving[detection.PoseEstimator](s.natives)
	case detection.VariantObject:
		_, ok = serving[detection.ObjectRecognizer](s.natives)
	case detection.VariantClassifier:
		_, ok = serving[detection.Classifier](s.natives)
	}
	return ok
}

// Detect implements the Detect RPC.
func (s *Service) Detect(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	variant, err := detection.ParseVariant(first(md, VariantKey))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInvalidArgument, "missing or unknown variant")
	}
	if !s.Supports(variant) {
		return nil, apperr.Newf(apperr.CodeInvalidArgument, "variant %s not served", variant).
			WithMetadata("variant", string(variant))
	}
	if len(req.GetValue()) > MaxFrameBytes {
		return nil, apperr.Newf(apperr.CodeInvalidArgument, "frame of %d bytes exceeds limit", len(req.GetValue()))
	}

	frame, err := frameFromBytes(req.GetValue())
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInvalidArgument, "unreadable frame")
	}
	hint := orientation.ParseHint(first(md, HintKey))

	var r response
	switch variant {
	case detection.VariantBarcode:
		e, _ := serving[detection.BarcodeReader](s.natives)
		r.Barcodes, err = e.ReadBarcodes(ctx, frame, hint)
	case detection.VariantFace:
		e, _ := serving[detection.FaceLocator](s.natives)
		r.Faces, err = e.LocateFaces(ctx, frame, hint)
	case detection.VariantPose:
		e, _ := serving[detection.PoseEstimator](s.natives)
		r.Poses, err = e.EstimatePoses(ctx, frame, hint)
	case detection.VariantObject:
		e, _ := serving[detection.ObjectRecognizer](s.natives)
		r.Objects, err = e.RecognizeObjects(ctx, frame, hint)
	case detection.VariantClassifier:
		e, _ := serving[detection.Classifier](s.natives)
		r.Classes, err = e.Classify(ctx, frame, hint)
	}
	if err != nil {
		trace.Logger(ctx).Warn("detect failed", "variant", variant, "error", err)
		return nil, apperr.Wrap(err, apperr.CodeDetectionFailure, "detect failed").
			WithMetadata("variant", string(variant))
	}

	out, err := encodeResponse(r)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "encode response")
	}
	trace.Logger(ctx).Debug("detect served", "variant", variant, "hint", hint, "width", frame.Width, "height", frame.Height)
	return out, nil
}

// NewServer creates a gRPC server with trace propagation.
func NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.MaxRecvMsgSize(MaxFrameBytes + 1024),
	}, opts...)
	return grpc.NewServer(opts...)
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
