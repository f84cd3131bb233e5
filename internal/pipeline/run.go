package pipeline

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ironsheep/idcard-ocr/internal/logger"
)

// run carries the bookkeeping of one call: its logger, span and timing.
type run struct {
	p     *Pipeline
	id    string
	log   *logger.Logger
	span  trace.Span
	start time.Time
}

func (p *Pipeline) begin(span trace.Span) *run {
	id := uuid.NewString()
	r := &run{
		p:     p,
		id:    id,
		log:   &logger.Logger{Logger: p.log.With().Str("extraction_id", id).Logger()},
		span:  span,
		start: time.Now(),
	}
	r.enter("", StateAwaitingInputs)
	return r
}

// enter logs a state transition. side is empty once the sides have joined.
func (r *run) enter(side Side, s State) {
	ev := r.log.Debug().Str("state", string(s))
	if side != "" {
		ev = ev.Str("side", string(side))
	}
	ev.Msg("State transition")
}

func (r *run) panicked(rv any) *Error {
	r.log.Error().
		Interface("panic", rv).
		Bytes("stack", debug.Stack()).
		Msg("Recovered panic in extraction")
	return &Error{
		Kind:    KindInternal,
		Stage:   StateFailed,
		Message: "internal service error",
		Err:     fmt.Errorf("panic: %v", rv),
	}
}

// finish converts rv and err into the call's final error, then records the
// outcome in logs, metrics and the span.
func (r *run) finish(rv any, err error) error {
	if rv != nil {
		err = r.panicked(rv)
	}
	elapsed := time.Since(r.start)

	if err == nil {
		r.enter("", StateDone)
		r.p.metrics.ObserveOutcome(string(StateDone))
		r.log.Info().Dur("duration", elapsed).Msg("Extraction complete")
		r.endSpan(string(StateDone), nil)
		return nil
	}

	pe := asError(err)
	r.enter("", StateFailed)
	r.p.metrics.ObserveOutcome(string(pe.Kind))

	ev := r.log.Warn()
	if pe.Kind == KindInternal || pe.Kind == KindEngine {
		ev = r.log.Error()
	}
	ev = ev.Str("kind", string(pe.Kind)).
		Str("stage", string(pe.Stage)).
		Dur("duration", elapsed)
	if pe.Side != "" {
		ev = ev.Str("side", string(pe.Side))
	}
	if pe.Field != "" {
		ev = ev.Str("field", pe.Field)
	}
	// Validation errors carry only the masked number, so Err is safe to log.
	if pe.Err != nil {
		ev = ev.Err(pe.Err)
	}
	ev.Msg("Extraction failed")

	r.endSpan(string(pe.Kind), pe)
	return pe
}

func (r *run) endSpan(outcome string, err error) {
	if r.span == nil {
		return
	}
	r.span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, outcome)
	}
	r.span.End()
}

// guard turns a panic inside an errgroup goroutine into an internal error,
// since the caller's recover cannot see it.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if rv := recover(); rv != nil {
				err = &Error{
					Kind:    KindInternal,
					Stage:   StateFailed,
					Message: "internal service error",
					Err:     fmt.Errorf("panic: %v\n%s", rv, debug.Stack()),
				}
			}
		}()
		return fn()
	}
}
