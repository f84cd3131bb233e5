package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/ironsheep/idcard-ocr/internal/config"
)

// ErrEngineUnavailable is returned when a recognition engine cannot be
// started: missing native library, missing language data, bad credentials.
var ErrEngineUnavailable = errors.New("recognition engine unavailable")

// Recognizer turns one encoded image into raw text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// Options configures the Tesseract engine.
type Options struct {
	// TessdataPrefix is the directory holding *.traineddata files.
	// Empty uses the library default.
	TessdataPrefix string

	// Whitelist restricts the characters Tesseract may emit.
	// Empty disables the restriction.
	Whitelist string
}

// EngineInfo describes a recognizer for health reporting.
type EngineInfo struct {
	Engine    string `json:"engine"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// New builds the recognizer selected by cfg.Engine.
func New(cfg config.OCRConfig) (Recognizer, error) {
	switch cfg.Engine {
	case config.EngineTesseract, "":
		return NewTesseract(Options{
			TessdataPrefix: cfg.TessdataPrefix,
			Whitelist:      cfg.Whitelist,
		}), nil
	case config.EngineVision:
		return NewVision(cfg.VisionCredentialsFile), nil
	default:
		return nil, fmt.Errorf("unknown recognition engine %q", cfg.Engine)
	}
}

// Info reports availability for r when it is one of this package's engines.
func Info(r Recognizer) EngineInfo {
	switch e := r.(type) {
	case *Tesseract:
		return e.Info()
	case *Vision:
		return e.Info()
	default:
		return EngineInfo{Engine: fmt.Sprintf("%T", r), Available: true}
	}
}

// Check returns an error wrapping ErrEngineUnavailable when r reports that
// it cannot run.
func Check(r Recognizer) error {
	info := Info(r)
	if info.Available {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrEngineUnavailable, info.Engine, info.Error)
}
