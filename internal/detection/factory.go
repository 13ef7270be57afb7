package detection

import apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"

// Options tunes the adapters.
type Options struct {
	MinConfidence float64
	PoseEnvelope  bool
}

// ForVariant wraps native, which must implement the estimator interface for
// v, in the matching adapter.
func ForVariant(v Variant, native any, opts Options) (Detector, error) {
	switch v {
	case VariantBarcode:
		if r, ok := native.(BarcodeReader); ok {
			return BarcodeDetector{Reader: r}, nil
		}
	case VariantFace:
		if l, ok := native.(FaceLocator); ok {
			return FaceDetector{Locator: l}, nil
		}
	case VariantPose:
		if e, ok := native.(PoseEstimator); ok {
			return PoseDetector{Estimator: e, MinConfidence: opts.MinConfidence, Envelope: opts.PoseEnvelope}, nil
		}
	case VariantObject:
		if r, ok := native.(ObjectRecognizer); ok {
			return ObjectDetector{Recognizer: r}, nil
		}
	case VariantClassifier:
		if c, ok := native.(Classifier); ok {
			return ClassifierDetector{Classifier: c, MinConfidence: opts.MinConfidence}, nil
		}
	default:
		return nil, apperr.Newf(apperr.CodeInvalidArgument, "unknown detector variant %q", v)
	}
	return nil, apperr.Newf(apperr.CodeInvalidArgument, "%T cannot serve the %s variant", native, v).
		WithMetadata("variant", string(v))
}
