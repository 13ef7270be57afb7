package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// mockNative implements every estimator interface with canned results.
type mockNative struct {
	barcodes []Barcode
	faces    []Face
	poses    []Pose
	objects  []Object
	classes  []Class
	err      error
	hints    []orientation.Hint
}

func (m *mockNative) ReadBarcodes(_ context.Context, _ camera.Frame, h orientation.Hint) ([]Barcode, error) {
	m.hints = append(m.hints, h)
	return m.barcodes, m.err
}

func (m *mockNative) LocateFaces(_ context.Context, _ camera.Frame, h orientation.Hint) ([]Face, error) {
	m.hints = append(m.hints, h)
	return m.faces, m.err
}

func (m *mockNative) EstimatePoses(_ context.Context, _ camera.Frame, h orientation.Hint) ([]Pose, error) {
	m.hints = append(m.hints, h)
	return m.poses, m.err
}

func (m *mockNative) RecognizeObjects(_ context.Context, _ camera.Frame, h orientation.Hint) ([]Object, error) {
	m.hints = append(m.hints, h)
	return m.objects, m.err
}

func (m *mockNative) Classify(_ context.Context, _ camera.Frame, h orientation.Hint) ([]Class, error) {
	m.hints = append(m.hints, h)
	return m.classes, m.err
}

func rect(x0, y0, x1, y1 float64) r2.Rect {
	return r2.RectFromPoints(r2.Point{X: x0, Y: y0}, r2.Point{X: x1, Y: y1})
}

func nearPoint(a, b r2.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestFilter(t *testing.T) {
	dets := []Detection{
		{Confidence: 0.9},
		{Confidence: 0},
		{Confidence: -0.3},
		{Confidence: 0.4},
		{Confidence: 0.2},
	}

	tests := []struct {
		floor float64
		want  int
	}{
		{0, 3},
		{-1, 3}, // negative floors still drop non-positive confidence
		{0.3, 2},
		{0.9, 0},
	}

	for _, tt := range tests {
		got := Filter(dets, tt.floor)
		if len(got) != tt.want {
			t.Errorf("Filter(floor=%v) kept %d, want %d", tt.floor, len(got), tt.want)
		}
		for _, d := range got {
			if d.Confidence <= 0 {
				t.Errorf("Filter kept confidence %v", d.Confidence)
			}
		}
	}
	if len(dets) != 5 {
		t.Error("Filter modified its input")
	}
}

func TestPoseFilterThenEnvelope(t *testing.T) {
	m := &mockNative{poses: []Pose{{Joints: []Joint{
		{Name: "nose", Location: r2.Point{X: 0.2, Y: 0.3}, Confidence: 0.9},
		{Name: "leftWrist", Location: r2.Point{X: 0.95, Y: 0.99}, Confidence: 0.0},
		{Name: "rightWrist", Location: r2.Point{X: 0.6, Y: 0.5}, Confidence: 0.4},
	}}}}
	d := PoseDetector{Estimator: m, Envelope: true}

	res, err := d.Detect(context.Background(), camera.Frame{}, orientation.HintRight)
	if err != nil {
		t.Fatal(err)
	}

	var points []Detection
	var boxes []Detection
	for _, det := range res.Detections {
		switch det.Kind {
		case KindPoint:
			points = append(points, det)
		case KindRectangle:
			boxes = append(boxes, det)
		}
	}

	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].Joint != "nose" || points[1].Joint != "rightWrist" {
		t.Errorf("joints = %s, %s", points[0].Joint, points[1].Joint)
	}
	if len(boxes) != 1 {
		t.Fatalf("envelopes = %d, want 1", len(boxes))
	}
	want := rect(0.2, 0.3, 0.6, 0.5)
	if !boxes[0].Rect.ApproxEqual(want) {
		t.Errorf("envelope = %v, want %v", boxes[0].Rect, want)
	}
	if math.Abs(boxes[0].Confidence-0.65) > 1e-9 {
		t.Errorf("envelope confidence = %v, want 0.65", boxes[0].Confidence)
	}
	if m.hints[0] != orientation.HintRight {
		t.Errorf("hint = %v, want %v", m.hints[0], orientation.HintRight)
	}
}

func TestPoseWithoutEnvelope(t *testing.T) {
	m := &mockNative{poses: []Pose{
		{Joints: []Joint{{Name: "a", Confidence: 0.5}}},
		{Joints: []Joint{{Name: "b", Confidence: 0.7}, {Name: "c", Confidence: 0.1}}},
	}}
	d := PoseDetector{Estimator: m, MinConfidence: 0.2}

	res, _ := d.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if len(res.Detections) != 2 {
		t.Fatalf("detections = %d, want 2", len(res.Detections))
	}
	if res.Detections[1].Subject != 1 {
		t.Errorf("Subject = %d, want 1", res.Detections[1].Subject)
	}
}

func TestPoseAllFilteredHasNoEnvelope(t *testing.T) {
	m := &mockNative{poses: []Pose{{Joints: []Joint{{Confidence: 0}, {Confidence: 0}}}}}
	d := PoseDetector{Estimator: m, Envelope: true}

	res, _ := d.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if len(res.Detections) != 0 {
		t.Errorf("detections = %d, want 0", len(res.Detections))
	}
}

func TestPoseNaNJointExcluded(t *testing.T) {
	m := &mockNative{poses: []Pose{{Joints: []Joint{
		{Name: "nose", Location: r2.Point{X: 0.2, Y: 0.3}, Confidence: 0.8},
		{Name: "ghost", Location: r2.Point{X: 0.9, Y: 0.9}, Confidence: math.NaN()},
		{Name: "hip", Location: r2.Point{X: 0.4, Y: 0.6}, Confidence: 0.6},
	}}}}
	d := PoseDetector{Estimator: m, Envelope: true}

	res, err := d.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Detections) != 3 {
		t.Fatalf("detections = %d, want 2 points and 1 envelope", len(res.Detections))
	}
	for _, det := range res.Detections {
		if det.Joint == "ghost" {
			t.Error("NaN joint should be dropped")
		}
	}
	env := res.Detections[2]
	if want := rect(0.2, 0.3, 0.4, 0.6); !env.Rect.ApproxEqual(want) {
		t.Errorf("envelope = %v, want %v", env.Rect, want)
	}
	if math.IsNaN(env.Confidence) || math.Abs(env.Confidence-0.7) > 1e-9 {
		t.Errorf("envelope confidence = %v, want 0.7", env.Confidence)
	}
}

func TestBarcodeDetector(t *testing.T) {
	m := &mockNative{barcodes: []Barcode{
		{Payload: "https://example.com", Corners: []r2.Point{{X: 0.1, Y: 0.2}, {X: 0.4, Y: 0.15}, {X: 0.45, Y: 0.5}, {X: 0.12, Y: 0.55}}},
		{Corners: []r2.Point{{X: 0.7, Y: 0.7}, {X: 0.8, Y: 0.8}}},
		{Payload: "no geometry"},
	}}

	res, err := BarcodeDetector{Reader: m}.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Detections) != 2 {
		t.Fatalf("detections = %d, want 2", len(res.Detections))
	}

	first := res.Detections[0]
	if first.Kind != KindLabeledRectangle || first.Label != "https://example.com" {
		t.Errorf("first = %v %q", first.Kind, first.Label)
	}
	if want := rect(0.1, 0.15, 0.45, 0.55); !first.Rect.ApproxEqual(want) {
		t.Errorf("first rect = %v, want %v", first.Rect, want)
	}
	if res.Detections[1].Kind != KindRectangle {
		t.Errorf("unlabeled barcode kind = %v, want rectangle", res.Detections[1].Kind)
	}
	if res.Caption == nil || res.Caption.Label != "https://example.com" {
		t.Errorf("Caption = %+v", res.Caption)
	}
}

func TestFaceDetector(t *testing.T) {
	m := &mockNative{faces: []Face{{Bounds: rect(0, 0, 0.5, 0.5), Confidence: 0.8}, {Bounds: rect(0.5, 0.5, 1, 1), Confidence: 0.6}}}

	res, _ := FaceDetector{Locator: m}.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if len(res.Detections) != 2 {
		t.Fatalf("detections = %d, want 2", len(res.Detections))
	}
	if res.Detections[0].Kind != KindRectangle || res.Detections[0].Confidence != 0.8 {
		t.Errorf("face = %+v", res.Detections[0])
	}
}

func TestObjectDetectorPicksBestClass(t *testing.T) {
	m := &mockNative{objects: []Object{
		{Bounds: rect(0.1, 0.1, 0.3, 0.3), Classes: []Class{{"cat", 0.3}, {"dog", 0.6}, {"fox", 0.1}}},
		{Bounds: rect(0.5, 0.5, 0.6, 0.6)}, // no classes
	}}

	res, _ := ObjectDetector{Recognizer: m}.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if len(res.Detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(res.Detections))
	}
	if d := res.Detections[0]; d.Label != "dog" || d.Confidence != 0.6 || d.Kind != KindLabeledRectangle {
		t.Errorf("object = %+v", d)
	}
}

func TestClassifierDetector(t *testing.T) {
	m := &mockNative{classes: []Class{{"beach", 0.2}, {"forest", 0.7}}}

	res, _ := ClassifierDetector{Classifier: m}.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if len(res.Detections) != 0 {
		t.Errorf("classifier produced %d detections", len(res.Detections))
	}
	if res.Caption == nil || res.Caption.Label != "forest" {
		t.Errorf("Caption = %+v, want forest", res.Caption)
	}

	res, _ = ClassifierDetector{Classifier: m, MinConfidence: 0.8}.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if res.Caption != nil {
		t.Errorf("Caption = %+v, want nil below floor", res.Caption)
	}

	m.classes = []Class{{"none", 0}}
	res, _ = ClassifierDetector{Classifier: m}.Detect(context.Background(), camera.Frame{}, orientation.HintUp)
	if res.Caption != nil {
		t.Errorf("Caption = %+v, want nil for zero confidence", res.Caption)
	}
}

func TestAdaptersPropagateErrors(t *testing.T) {
	boom := errors.New("model crashed")
	m := &mockNative{err: boom}

	for _, v := range Variants {
		d, err := ForVariant(v, m, Options{})
		if err != nil {
			t.Fatalf("ForVariant(%s) = %v", v, err)
		}
		if d.Variant() != v {
			t.Errorf("Variant() = %s, want %s", d.Variant(), v)
		}
		if _, err := d.Detect(context.Background(), camera.Frame{}, orientation.HintUp); !errors.Is(err, boom) {
			t.Errorf("%s Detect() error = %v, want %v", v, err, boom)
		}
	}
}

func TestForVariantRejectsMismatch(t *testing.T) {
	if _, err := ForVariant(VariantPose, Highlight{}, Options{}); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("ForVariant(pose, Highlight) error = %v, want INVALID_ARGUMENT", err)
	}
	if _, err := ForVariant("lidar", &mockNative{}, Options{}); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("ForVariant(lidar) error = %v, want INVALID_ARGUMENT", err)
	}
	if _, err := ForVariant(VariantObject, Highlight{}, Options{}); err != nil {
		t.Errorf("ForVariant(object, Highlight) = %v", err)
	}
}

func TestParseVariant(t *testing.T) {
	if v, err := ParseVariant("Pose"); err != nil || v != VariantPose {
		t.Errorf("ParseVariant(Pose) = %v, %v", v, err)
	}
	if _, err := ParseVariant("ocr"); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("ParseVariant(ocr) error = %v, want INVALID_ARGUMENT", err)
	}
	if !VariantClassifier.Captions() || VariantObject.Captions() {
		t.Error("Captions() mismatch")
	}
}

func TestRotatePointFullTurn(t *testing.T) {
	p := r2.Point{X: 0.2, Y: 0.7}
	q := p
	for i := 0; i < 4; i++ {
		q = RotatePoint(q, orientation.HintRight)
	}
	if !nearPoint(q, p) {
		t.Errorf("four quarter turns = %v, want %v", q, p)
	}

	if got := RotatePoint(p, orientation.HintDown); !nearPoint(got, r2.Point{X: 0.8, Y: 0.3}) {
		t.Errorf("half turn = %v", got)
	}
	// Top-left corner lands top-right after a clockwise quarter turn.
	if got := RotatePoint(r2.Point{}, orientation.HintRight); got != (r2.Point{X: 1, Y: 0}) {
		t.Errorf("quarter turn of origin = %v, want (1,0)", got)
	}
}

func TestHighlightFindsBrightRegion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 10; y < 20; y++ {
		for x := 40; x < 60; x++ {
			img.Set(x, y, color.White)
		}
	}

	objs, err := Highlight{Threshold: 200}.RecognizeObjects(context.Background(), camera.FromImage(img), orientation.HintUp)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 {
		t.Fatalf("objects = %d, want 1", len(objs))
	}
	if want := rect(0.4, 0.2, 0.6, 0.4); !objs[0].Bounds.ApproxEqual(want) {
		t.Errorf("Bounds = %v, want %v", objs[0].Bounds, want)
	}
	if c := objs[0].Classes[0]; c.Label != "highlight" || c.Confidence != 1 {
		t.Errorf("class = %+v", c)
	}
}

func TestHighlightDarkFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	objs, err := Highlight{Threshold: 128}.RecognizeObjects(context.Background(), camera.FromImage(img), orientation.HintUp)
	if err != nil || len(objs) != 0 {
		t.Errorf("RecognizeObjects = %v, %v, want none", objs, err)
	}
}
