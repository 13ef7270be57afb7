package grpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GriffinCanCode/camera-overlay/internal/camera"
	"github.com/GriffinCanCode/camera-overlay/internal/detection"
)

// response is the variant-native payload carried in a structpb.Struct. Only
// the field for the requested variant is set.
type response struct {
	Barcodes []detection.Barcode `json:"barcodes,omitempty"`
	Faces    []detection.Face    `json:"faces,omitempty"`
	Poses    []detection.Pose    `json:"poses,omitempty"`
	Objects  []detection.Object  `json:"objects,omitempty"`
	Classes  []detection.Class   `json:"classes,omitempty"`
}

func encodeResponse(r response) (*structpb.Struct, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeResponse(s *structpb.Struct) (response, error) {
	var r response
	raw, err := s.MarshalJSON()
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(raw, &r)
	return r, err
}

// frameFromBytes rebuilds a frame from an encoded image.
func frameFromBytes(data []byte) (camera.Frame, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return camera.Frame{}, fmt.Errorf("decode frame header: %w", err)
	}
	f := camera.Frame{Data: data, Width: cfg.Width, Height: cfg.Height}
	switch format {
	case "jpeg":
		f.Format = camera.FormatJPEG
	case "png":
		f.Format = camera.FormatPNG
	default:
		return camera.Frame{}, fmt.Errorf("unsupported frame encoding %q", format)
	}
	return f, nil
}
