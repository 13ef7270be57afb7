// Package camera delivers video frames to the pipeline. Sources own their
// buffers; a Frame is only valid for the callback and the detection pass it
// triggers.
package camera

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"time"
)

// Format describes how Frame.Data is encoded.
type Format string

const (
	FormatRGBA Format = "rgba"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// Frame is one captured image tagged with its pixel dimensions.
type Frame struct {
	Seq        uint64
	Data       []byte
	Format     Format
	Width      int
	Height     int
	CapturedAt time.Time
}

// Decode returns the frame as an image. RGBA frames wrap Data without
// copying, so the result shares the source's buffer.
func (f Frame) Decode() (image.Image, error) {
	switch f.Format {
	case FormatRGBA:
		if f.Width <= 0 || f.Height <= 0 || len(f.Data) < f.Width*f.Height*4 {
			return nil, fmt.Errorf("rgba frame %dx%d has %d bytes", f.Width, f.Height, len(f.Data))
		}
		return &image.RGBA{
			Pix:    f.Data,
			Stride: f.Width * 4,
			Rect:   image.Rect(0, 0, f.Width, f.Height),
		}, nil
	case FormatJPEG, FormatPNG:
		img, _, err := image.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("decode %s frame: %w", f.Format, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unknown frame format %q", f.Format)
	}
}

// FromImage packs img into an RGBA frame.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return Frame{
		Data:       rgba.Pix,
		Format:     FormatRGBA,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: time.Now(),
	}
}
