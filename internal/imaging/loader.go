package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Assumed dimensions when an image header cannot be read.
const (
	DefaultWidth  = 1000
	DefaultHeight = 600
)

// ErrEmptyImage is returned when an operation receives zero bytes.
var ErrEmptyImage = errors.New("empty image data")

// Dimensions describes an image's size and detected format.
type Dimensions struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder name ("png", "jpeg", ...) or "unknown".
	Format string `json:"format"`

	// Assumed is true when the header was unreadable and the defaults were used.
	Assumed bool `json:"assumed"`
}

// Inspect reads only the image header and reports its dimensions.
//
// Inspect never fails. When the header cannot be parsed it returns the
// DefaultWidth x DefaultHeight assumption with Assumed set, so that margin
// arithmetic downstream always has something to work with.
func Inspect(data []byte) Dimensions {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{
			Width:   DefaultWidth,
			Height:  DefaultHeight,
			Format:  "unknown",
			Assumed: true,
		}
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height, Format: format}
}

// Decode decodes image bytes without applying EXIF orientation.
// Orientation is applied explicitly as the last enhancement step.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadFile loads raw image bytes from disk. It does not decode them.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyImage)
	}
	return data, nil
}

// EncodedImage is an image serialized for transport in a JSON payload.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeForTransport wraps encoded image bytes with their dimensions as base64.
func EncodeForTransport(data []byte) *EncodedImage {
	dims := Inspect(data)
	mime := "application/octet-stream"
	if !dims.Assumed {
		mime = "image/" + dims.Format
	}
	return &EncodedImage{
		Width:       dims.Width,
		Height:      dims.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    mime,
	}
}
