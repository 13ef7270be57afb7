package detection

import (
	"context"

	"github.com/golang/geo/r2"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// BarcodeDetector emits one rectangle per symbol, the bounding box of its
// quadrilateral, labeled with the payload. The first payload is also the
// caption.
type BarcodeDetector struct {
	Reader BarcodeReader
}

func (d BarcodeDetector) Variant() Variant { return VariantBarcode }

func (d BarcodeDetector) Detect(ctx context.Context, frame camera.Frame, hint orientation.Hint) (Result, error) {
	codes, err := d.Reader.ReadBarcodes(ctx, frame, hint)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, c := range codes {
		if len(c.Corners) == 0 {
			continue
		}
		det := Detection{Kind: KindRectangle, Rect: Envelope(c.Corners), Confidence: 1}
		if c.Payload != "" {
			det.Kind, det.Label = KindLabeledRectangle, c.Payload
			if res.Caption == nil {
				res.Caption = &Caption{Label: c.Payload, Confidence: 1}
			}
		}
		res.Detections = append(res.Detections, det)
	}
	return res, nil
}

// FaceDetector emits one rectangle per face.
type FaceDetector struct {
	Locator FaceLocator
}

func (d FaceDetector) Variant() Variant { return VariantFace }

func (d FaceDetector) Detect(ctx context.Context, frame camera.Frame, hint orientation.Hint) (Result, error) {
	faces, err := d.Locator.LocateFaces(ctx, frame, hint)
	if err != nil {
		return Result{}, err
	}

	res := Result{Detections: make([]Detection, 0, len(faces))}
	for _, f := range faces {
		res.Detections = append(res.Detections, Detection{Kind: KindRectangle, Rect: f.Bounds, Confidence: f.Confidence})
	}
	return res, nil
}

// PoseDetector emits one point per joint above MinConfidence. With Envelope
// set it adds, per subject, the rectangle around the joints that survived
// filtering; its confidence is their mean.
type PoseDetector struct {
	Estimator     PoseEstimator
	MinConfidence float64
	Envelope      bool
}

func (d PoseDetector) Variant() Variant { return VariantPose }

func (d PoseDetector) Detect(ctx context.Context, frame camera.Frame, hint orientation.Hint) (Result, error) {
	poses, err := d.Estimator.EstimatePoses(ctx, frame, hint)
	if err != nil {
		return Result{}, err
	}

	floor := max(d.MinConfidence, 0)
	var res Result
	for subject, p := range poses {
		var (
			points []r2.Point
			sum    float64
		)
		for _, j := range p.Joints {
			if !(j.Confidence > floor) {
				continue
			}
			res.Detections = append(res.Detections, Detection{
				Kind:       KindPoint,
				Point:      j.Location,
				Confidence: j.Confidence,
				Subject:    subject,
				Joint:      j.Name,
			})
			points = append(points, j.Location)
			sum += j.Confidence
		}
		if d.Envelope && len(points) > 0 {
			res.Detections = append(res.Detections, Detection{
				Kind:       KindRectangle,
				Rect:       Envelope(points),
				Confidence: sum / float64(len(points)),
				Subject:    subject,
			})
		}
	}
	return res, nil
}

// ObjectDetector emits one labeled rectangle per object, labeled with its
// highest-scoring class.
type ObjectDetector struct {
	Recognizer ObjectRecognizer
}

func (d ObjectDetector) Variant() Variant { return VariantObject }

func (d ObjectDetector) Detect(ctx context.Context, frame camera.Frame, hint orientation.Hint) (Result, error) {
	objects, err := d.Recognizer.RecognizeObjects(ctx, frame, hint)
	if err != nil {
		return Result{}, err
	}

	res := Result{Detections: make([]Detection, 0, len(objects))}
	for _, o := range objects {
		top, ok := best(o.Classes)
		if !ok {
			continue
		}
		res.Detections = append(res.Detections, Detection{
			Kind:       KindLabeledRectangle,
			Rect:       o.Bounds,
			Label:      top.Label,
			Confidence: top.Confidence,
		})
	}
	return res, nil
}

// ClassifierDetector produces only a caption: the best class above
// MinConfidence, or none.
type ClassifierDetector struct {
	Classifier    Classifier
	MinConfidence float64
}

func (d ClassifierDetector) Variant() Variant { return VariantClassifier }

func (d ClassifierDetector) Detect(ctx context.Context, frame camera.Frame, hint orientation.Hint) (Result, error) {
	classes, err := d.Classifier.Classify(ctx, frame, hint)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if top, ok := best(classes); ok && top.Confidence > max(d.MinConfidence, 0) {
		res.Caption = &Caption{Label: top.Label, Confidence: top.Confidence}
	}
	return res, nil
}

// best returns the highest-confidence class. Ties keep the first.
func best(classes []Class) (Class, bool) {
	if len(classes) == 0 {
		return Class{}, false
	}
	top := classes[0]
	for _, c := range classes[1:] {
		if c.Confidence > top.Confidence {
			top = c
		}
	}
	return top, true
}
