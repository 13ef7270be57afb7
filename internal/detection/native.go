package detection

import (
	"context"

	"github.com/golang/geo/r2"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// Native result types. Estimators return geometry already normalized to the
// orientation named by the hint they were given.

// Barcode is one decoded symbol.
type Barcode struct {
	Payload   string     `json:"payload"`
	Symbology string     `json:"symbology,omitempty"`
	Corners   []r2.Point `json:"corners"`
}

// Face is one located face.
type Face struct {
	Bounds     r2.Rect `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// Joint is one named keypoint.
type Joint struct {
	Name       string   `json:"name"`
	Location   r2.Point `json:"location"`
	Confidence float64  `json:"confidence"`
}

// Pose is the keypoints of one subject.
type Pose struct {
	Joints []Joint `json:"joints"`
}

// Class is a label with its score.
type Class struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Object is one recognized object with its candidate classes.
type Object struct {
	Bounds  r2.Rect `json:"bounds"`
	Classes []Class `json:"classes"`
}

// BarcodeReader decodes barcodes and QR codes.
type BarcodeReader interface {
	ReadBarcodes(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]Barcode, error)
}

// FaceLocator finds face rectangles.
type FaceLocator interface {
	LocateFaces(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]Face, error)
}

// PoseEstimator finds human body keypoints.
type PoseEstimator interface {
	EstimatePoses(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]Pose, error)
}

// ObjectRecognizer finds labeled objects.
type ObjectRecognizer interface {
	RecognizeObjects(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]Object, error)
}

// Classifier labels the whole image.
type Classifier interface {
	Classify(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]Class, error)
}
