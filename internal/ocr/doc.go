// Package ocr adapts optical character recognition engines to the
// recognizer contract used by the extraction pipeline:
//
//	Recognize(ctx, image, language) (text, error)
//
// # Engines
//
//   - Tesseract, through gosseract/v2. Native bindings need cgo; a build
//     with CGO_ENABLED=0 gets a stub that reports ErrEngineUnavailable on
//     every call. Check reports that at startup.
//   - Google Cloud Vision DOCUMENT_TEXT_DETECTION, through the v2 client.
//
// # Prerequisites
//
// Tesseract and its language data must be installed for cgo builds:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Set ocr.tessdata_prefix (IDCARD_OCR_TESSDATA_PREFIX) when the training data
// lives outside the default location.
//
// Cloud Vision uses Application Default Credentials unless
// ocr.vision_credentials_file names a service account key.
//
// # Resource Scope
//
// Every call acquires a fresh engine client and releases it before returning,
// on success and failure alike. Engines hold no state between calls, so one
// recognizer value may serve concurrent requests.
//
// # Configuration
//
// Tesseract runs in sparse-text page segmentation mode with a whitelist of
// Latin letters, digits, space and the punctuation set /:,.-(), which suits
// the scattered layout of an identity card.
package ocr
