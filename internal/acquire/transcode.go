package acquire

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const jpegQuality = 90

// Transcoder normalizes image bytes to a baseline photographic format.
// Absent capability = the Disabled stub.
type Transcoder interface {
	// ToJPEG re-encodes non-JPEG bytes as baseline JPEG, flattening
	// transparency onto white. JPEG input passes through unchanged.
	ToJPEG(data []byte) ([]byte, error)
}

type StdTranscoder struct{}

func (StdTranscoder) ToJPEG(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("transcode: decode: %w", err)
	}

	if format == "jpeg" {
		return data, nil
	}

	// Flatten palette/alpha onto a white background. JPEG has no alpha
	// channel, so compositing beats dropping it.
	b := img.Bounds()
	flat := image.NewRGBA(b)
	draw.Draw(flat, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, b, img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("transcode: encode: %w", err)
	}

	return buf.Bytes(), nil
}

// DisabledTranscoder reports the image codec capability as absent.
type DisabledTranscoder struct{}

func (DisabledTranscoder) ToJPEG([]byte) ([]byte, error) {
	return nil, fmt.Errorf("image transcoding not available")
}
