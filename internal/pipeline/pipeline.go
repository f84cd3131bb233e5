// Package pipeline orchestrates identity card extraction.
//
// Extract takes the two photographs of a card and runs each one through
// preprocessing, recognition and normalization concurrently. The two texts
// are then joined for field extraction and identity number validation.
// Every failure is reported as an *Error whose Kind tells the caller what
// happened and which HTTP status to answer with.
//
// A Pipeline holds no per-request state and is safe for concurrent use.
// Nothing is retried and no deadline is imposed; both belong to the caller
// through ctx.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/idcard-ocr/internal/config"
	"github.com/ironsheep/idcard-ocr/internal/extract"
	"github.com/ironsheep/idcard-ocr/internal/idnumber"
	"github.com/ironsheep/idcard-ocr/internal/imaging"
	"github.com/ironsheep/idcard-ocr/internal/logger"
)

const tracerName = "github.com/ironsheep/idcard-ocr/internal/pipeline"

// DefaultMinTextLength applies when Options.MinTextLength is not positive.
const DefaultMinTextLength = 10

// Recognizer turns one encoded image into raw text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// Options tunes a Pipeline.
type Options struct {
	// Language is passed to the recognizer with every image.
	Language string
	// MinTextLength is the fewest non-whitespace characters a recognized
	// side may have before it counts as a recognition failure. Values below
	// one use DefaultMinTextLength.
	MinTextLength int
	// MaxImageBytes rejects larger images as input errors. Zero disables the check.
	MaxImageBytes int64
	// RegionAnchor ends the address on the back of the card.
	RegionAnchor string
}

// OptionsFromConfig collects pipeline options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Language:      cfg.OCR.Language,
		MinTextLength: cfg.OCR.MinTextLength,
		MaxImageBytes: cfg.Server.MaxUploadBytes,
		RegionAnchor:  cfg.Extract.RegionAnchor,
	}
}

// Option customizes a Pipeline at construction.
type Option func(*Pipeline)

// WithPreprocessor enhances images before recognition. Without it images go
// to the recognizer untouched.
func WithPreprocessor(p *imaging.Preprocessor) Option {
	return func(pl *Pipeline) { pl.preprocessor = p }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(pl *Pipeline) { pl.log = l.WithComponent("pipeline") }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(pl *Pipeline) { pl.tracer = t }
}

// Pipeline runs extractions.
type Pipeline struct {
	recognizer   Recognizer
	preprocessor *imaging.Preprocessor
	extractor    *extract.Extractor
	opts         Options
	log          *logger.Logger
	metrics      *Metrics
	tracer       trace.Tracer
}

// New creates a Pipeline around recognizer.
func New(recognizer Recognizer, opts Options, options ...Option) *Pipeline {
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	p := &Pipeline{
		recognizer: recognizer,
		extractor:  extract.NewExtractor(opts.RegionAnchor),
		opts:       opts,
		log:        logger.Nop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// WithoutPreprocessing returns a copy of p that sends images to the
// recognizer untouched.
func (p *Pipeline) WithoutPreprocessing() *Pipeline {
	cp := *p
	cp.preprocessor = nil
	return &cp
}

// SideResult is the outcome of one side's sub-pipeline.
type SideResult struct {
	Side Side `json:"side"`
	// Enhanced is false when preprocessing was disabled or fell back.
	Enhanced bool `json:"enhanced"`
	// Fallback explains why preprocessing fell back.
	Fallback string `json:"fallback,omitempty"`
	RawText  string `json:"raw_text"`
	Text     string `json:"text"`
}

// Extract runs the full pipeline over the front and back images of a card.
//
// Both images must be non-empty; otherwise a KindInput error is returned
// before any recognition happens. The returned error is always an *Error.
func (p *Pipeline) Extract(ctx context.Context, front, back []byte) (rec extract.Record, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Extract")
	r := p.begin(span)
	defer func() { err = r.finish(recover(), err) }()

	if err := p.checkInputs(front, back); err != nil {
		return extract.Record{}, err
	}

	var frontRes, backRes SideResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() (err error) {
		frontRes, err = p.runSide(gctx, r, SideFront, front)
		return err
	}))
	g.Go(guard(func() (err error) {
		backRes, err = p.runSide(gctx, r, SideBack, back)
		return err
	}))
	if err := g.Wait(); err != nil {
		return extract.Record{}, err
	}

	return p.extractAndValidate(r, frontRes.Text, backRes.Text)
}

// ExtractText runs the stages after recognition over already-recognized
// text. It applies the same length check, normalization, extraction and
// validation as Extract.
func (p *Pipeline) ExtractText(ctx context.Context, frontText, backText string) (rec extract.Record, err error) {
	_, span := p.tracer.Start(ctx, "pipeline.ExtractText")
	r := p.begin(span)
	defer func() { err = r.finish(recover(), err) }()

	front, err := p.checkText(r, SideFront, frontText)
	if err != nil {
		return extract.Record{}, err
	}
	back, err := p.checkText(r, SideBack, backText)
	if err != nil {
		return extract.Record{}, err
	}
	return p.extractAndValidate(r, front, back)
}

// RecognizeSide runs preprocessing, recognition and normalization for a
// single image. It is the per-side half of Extract.
func (p *Pipeline) RecognizeSide(ctx context.Context, side Side, image []byte) (res SideResult, err error) {
	r := p.begin(nil)
	defer func() {
		if rv := recover(); rv != nil {
			err = r.panicked(rv)
		}
	}()

	if len(image) == 0 {
		return SideResult{Side: side}, inputError(side, fmt.Sprintf("%s image is missing", side))
	}
	return p.runSide(ctx, r, side, image)
}

func (p *Pipeline) checkInputs(front, back []byte) error {
	switch {
	case len(front) == 0 && len(back) == 0:
		return inputError("", "front and back images are required")
	case len(front) == 0:
		return inputError(SideFront, "front image is missing")
	case len(back) == 0:
		return inputError(SideBack, "back image is missing")
	}
	if limit := p.opts.MaxImageBytes; limit > 0 {
		if int64(len(front)) > limit {
			return inputError(SideFront, fmt.Sprintf("front image exceeds %d bytes", limit))
		}
		if int64(len(back)) > limit {
			return inputError(SideBack, fmt.Sprintf("back image exceeds %d bytes", limit))
		}
	}
	return nil
}

func (p *Pipeline) runSide(ctx context.Context, r *run, side Side, image []byte) (SideResult, error) {
	res := SideResult{Side: side}
	log := r.log.WithSide(string(side))

	data := image
	if p.preprocessor != nil {
		r.enter(side, StatePreprocessing)
		start := time.Now()
		_, span := p.tracer.Start(ctx, "preprocess", trace.WithAttributes(attribute.String("side", string(side))))
		out := p.preprocessor.Process(image)
		span.End()
		p.metrics.ObserveStage(StatePreprocessing, start)

		data = out.Data
		res.Enhanced = out.Enhanced()
		if !res.Enhanced {
			res.Fallback = out.Fallback.Error()
			p.metrics.IncPreprocessFallback(side)
			log.Warn().
				Err(out.Fallback).
				Int("width", out.Dimensions.Width).
				Int("height", out.Dimensions.Height).
				Msg("Preprocessing failed, recognizing original image")
		}
	}

	r.enter(side, StateRecognizing)
	start := time.Now()
	rctx, span := p.tracer.Start(ctx, "recognize", trace.WithAttributes(attribute.String("side", string(side))))
	raw, err := p.recognizer.Recognize(rctx, data, p.opts.Language)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recognition engine failed")
	}
	span.End()
	p.metrics.ObserveStage(StateRecognizing, start)
	if err != nil {
		return res, &Error{
			Kind:    KindEngine,
			Stage:   StateRecognizing,
			Side:    side,
			Message: "text recognition engine failed, try again later",
			Err:     err,
		}
	}
	res.RawText = raw

	text, err := p.checkText(r, side, raw)
	if err != nil {
		return res, err
	}
	res.Text = text
	return res, nil
}

// checkText rejects too-short recognized text and normalizes the rest.
func (p *Pipeline) checkText(r *run, side Side, raw string) (string, error) {
	n := extract.NonSpaceLen(strings.TrimSpace(raw))
	r.log.Debug().Str("side", string(side)).Int("chars", n).Msg("Recognized text")
	if n < p.opts.MinTextLength {
		return "", &Error{
			Kind:    KindRecognition,
			Stage:   StateRecognizing,
			Side:    side,
			Message: fmt.Sprintf("could not read enough text from the %s image, please retake it", side),
		}
	}

	r.enter(side, StateNormalizing)
	return extract.Normalize(raw), nil
}

func (p *Pipeline) extractAndValidate(r *run, front, back string) (extract.Record, error) {
	r.enter("", StateExtracting)
	start := time.Now()
	rec, matched := p.extractor.ExtractWithTrace(front, back)
	p.metrics.ObserveStage(StateExtracting, start)

	ev := r.log.Debug()
	for f, rule := range matched {
		ev = ev.Str(string(f), rule)
	}
	ev.Msg("Fields extracted")

	if missing := rec.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = string(f)
		}
		return rec, &Error{
			Kind:    KindExtraction,
			Stage:   StateExtracting,
			Field:   string(missing[0]),
			Message: fmt.Sprintf("could not find %s on the card", strings.Join(names, ", ")),
		}
	}

	r.enter("", StateValidating)
	if err := idnumber.Validate(rec.IdentityNumber); err != nil {
		// The idnumber error message carries only the masked number.
		return rec, &Error{
			Kind:    KindValidation,
			Stage:   StateValidating,
			Field:   string(extract.FieldIdentityNumber),
			Message: err.Error(),
			Err:     err,
		}
	}

	return rec, nil
}
