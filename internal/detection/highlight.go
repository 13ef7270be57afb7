package detection

import (
	"context"
	"image"
	"image/color"

	"github.com/golang/geo/r2"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/orientation"
)

// Highlight is a pure-Go ObjectRecognizer that reports the bounding box of
// all pixels at or above Threshold luminance as one object. Confidence is the
// share of the box that is bright. It pairs with the test pattern source.
type Highlight struct {
	Threshold uint8
	Label     string
}

// RecognizeObjects implements ObjectRecognizer.
func (h Highlight) RecognizeObjects(ctx context.Context, frame camera.Frame, hint orientation.Hint) ([]Object, error) {
	img, err := frame.Decode()
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	box := image.Rectangle{}
	bright := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if y%64 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < h.Threshold {
				continue
			}
			bright++
			box = box.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	if bright == 0 {
		return nil, nil
	}

	w, ht := float64(b.Dx()), float64(b.Dy())
	norm := r2.RectFromPoints(
		r2.Point{X: float64(box.Min.X-b.Min.X) / w, Y: float64(box.Min.Y-b.Min.Y) / ht},
		r2.Point{X: float64(box.Max.X-b.Min.X) / w, Y: float64(box.Max.Y-b.Min.Y) / ht},
	)

	label := h.Label
	if label == "" {
		label = "highlight"
	}
	return []Object{{
		Bounds:  RotateRect(norm, hint),
		Classes: []Class{{Label: label, Confidence: float64(bright) / float64(box.Dx()*box.Dy())}},
	}}, nil
}
