//go:build cgo

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text with a locally installed Tesseract engine.
type Tesseract struct {
	opts Options
}

// NewTesseract creates a Tesseract recognizer. No native resources are
// acquired until Recognize is called.
func NewTesseract(opts Options) *Tesseract {
	return &Tesseract{opts: opts}
}

// Recognize runs Tesseract over one encoded image.
//
// A new client is created for the call and closed before returning, so the
// native engine is never shared between goroutines. Failures to configure
// the client wrap ErrEngineUnavailable.
//
// The context is checked before the engine starts; gosseract offers no way
// to interrupt a running recognition.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			return "", fmt.Errorf("%w: failed to set tessdata path: %v", ErrEngineUnavailable, err)
		}
	}

	if err := client.SetLanguage(language); err != nil {
		return "", fmt.Errorf("%w: failed to set language: %v", ErrEngineUnavailable, err)
	}

	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return "", fmt.Errorf("%w: failed to set page segmentation mode: %v", ErrEngineUnavailable, err)
	}

	if t.opts.Whitelist != "" {
		if err := client.SetWhitelist(t.opts.Whitelist); err != nil {
			return "", fmt.Errorf("%w: failed to set whitelist: %v", ErrEngineUnavailable, err)
		}
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Info reports the linked Tesseract version.
func (t *Tesseract) Info() EngineInfo {
	client := gosseract.NewClient()
	defer client.Close()

	if t.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			return EngineInfo{Engine: "tesseract", Error: err.Error()}
		}
	}

	return EngineInfo{
		Engine:    "tesseract",
		Available: true,
		Version:   client.Version(),
	}
}
