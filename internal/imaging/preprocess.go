package imaging

import (
	"fmt"

	"github.com/ironsheep/idcard-ocr/internal/config"
)

// Options tunes the enhancement chain. See DefaultOptions for the values
// the recognizer was tuned against.
type Options struct {
	// TargetWidth is the output width in pixels; height follows the aspect ratio.
	TargetWidth int

	// MarginX and MarginY are the fractions of width and height removed from
	// each edge before any other processing.
	MarginX float64
	MarginY float64

	// ContrastGain and ContrastOffset define the linear boost v' = gain*v + offset.
	ContrastGain   float64
	ContrastOffset float64

	// SharpenSigma is the Gaussian sigma of the unsharp mask. Zero disables it.
	SharpenSigma float64

	// Threshold is the binarization level; pixels below it become black.
	Threshold uint8
}

// DefaultOptions returns the standard tuning for identity card photographs.
func DefaultOptions() Options {
	return Options{
		TargetWidth:    2000,
		MarginX:        0.03,
		MarginY:        0.05,
		ContrastGain:   1.2,
		ContrastOffset: -20,
		SharpenSigma:   1.0,
		Threshold:      128,
	}
}

// OptionsFromConfig converts the preprocess configuration section.
func OptionsFromConfig(c config.PreprocessConfig) Options {
	return Options{
		TargetWidth:    c.TargetWidth,
		MarginX:        c.MarginX,
		MarginY:        c.MarginY,
		ContrastGain:   c.ContrastGain,
		ContrastOffset: c.ContrastOffset,
		SharpenSigma:   c.SharpenSigma,
		Threshold:      uint8(c.Threshold),
	}
}

// Output is the result of Process. Data is always usable.
type Output struct {
	// Data holds the enhanced PNG, or the original bytes when Fallback is set.
	Data []byte

	// Dimensions is what Inspect reported for the source bytes.
	Dimensions Dimensions

	// Fallback is the reason the chain was abandoned, or nil on success.
	Fallback error
}

// Enhanced reports whether Data holds the processed image.
func (o Output) Enhanced() bool {
	return o.Fallback == nil
}

// Preprocessor runs the enhancement chain described in the package doc.
type Preprocessor struct {
	opts Options
}

// NewPreprocessor creates a Preprocessor with the given options.
func NewPreprocessor(opts Options) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// Process enhances an encoded image for recognition.
//
// Process never fails: when any step errors, the original data is returned
// in Output.Data and the error in Output.Fallback.
func (p *Preprocessor) Process(data []byte) Output {
	dims := Inspect(data)
	enhanced, err := p.enhance(data, dims)
	if err != nil {
		return Output{Data: data, Dimensions: dims, Fallback: err}
	}
	return Output{Data: enhanced, Dimensions: dims}
}

func (p *Preprocessor) enhance(data []byte, dims Dimensions) (out []byte, err error) {
	// imaging and bild index pixel buffers directly; a corrupt decode must
	// not take the request down with it.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("enhancement panicked: %v", r)
		}
	}()

	if p.opts.TargetWidth <= 0 {
		return nil, fmt.Errorf("invalid target width %d", p.opts.TargetWidth)
	}

	src, err := Decode(data)
	if err != nil {
		return nil, err
	}

	cropped, err := CropMargins(src, dims, p.opts.MarginX, p.opts.MarginY)
	if err != nil {
		return nil, err
	}

	img := Normalize(Grayscale(cropped))
	img = LinearContrast(img, p.opts.ContrastGain, p.opts.ContrastOffset)
	img = Sharpen(img, p.opts.SharpenSigma)
	binary := Binarize(img, p.opts.Threshold)
	resized := ResizeToWidth(binary, p.opts.TargetWidth)
	final := ApplyOrientation(resized, ReadOrientation(data))

	return EncodePNG(final)
}
