//go:build !cgo

package ocr

import "context"

// Tesseract is a placeholder used when the binary is built without cgo,
// which gosseract requires. Every call fails with ErrEngineUnavailable.
type Tesseract struct {
	opts Options
}

// NewTesseract creates the placeholder recognizer.
func NewTesseract(opts Options) *Tesseract {
	return &Tesseract{opts: opts}
}

// Recognize always returns ErrEngineUnavailable.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	return "", ErrEngineUnavailable
}

// Info reports the engine as unavailable.
func (t *Tesseract) Info() EngineInfo {
	return EngineInfo{
		Engine: "tesseract",
		Error:  "built without cgo; rebuild with CGO_ENABLED=1",
	}
}
