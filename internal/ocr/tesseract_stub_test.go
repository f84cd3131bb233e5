//go:build !cgo

package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestTesseractStub(t *testing.T) {
	r := NewTesseract(Options{})

	_, err := r.Recognize(context.Background(), []byte("image"), "eng")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("Recognize: got %v, want ErrEngineUnavailable", err)
	}

	info := r.Info()
	if info.Available {
		t.Error("stub should report the engine as unavailable")
	}
	if info.Error == "" {
		t.Error("stub should explain why the engine is unavailable")
	}
}

func TestCheck_StubIsUnavailable(t *testing.T) {
	err := Check(NewTesseract(Options{}))
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("Check: got %v, want ErrEngineUnavailable", err)
	}
}
