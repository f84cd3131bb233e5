package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure. Each kind maps to exactly one HTTP status.
type Kind string

const (
	KindInput       Kind = "input_error"
	KindRecognition Kind = "recognition_error"
	KindEngine      Kind = "engine_error"
	KindExtraction  Kind = "extraction_error"
	KindValidation  Kind = "validation_error"
	KindInternal    Kind = "internal_error"
)

// HTTPStatus returns the status code a transport should answer with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInput:
		return http.StatusBadRequest
	case KindRecognition, KindExtraction, KindValidation:
		return http.StatusUnprocessableEntity
	case KindEngine:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the same request may succeed later unchanged.
func (k Kind) Retryable() bool {
	return k == KindEngine
}

// Error is the only error type Extract returns.
type Error struct {
	Kind  Kind
	Stage State
	// Side is set for failures inside one side's sub-pipeline.
	Side Side
	// Field names the missing field of an extraction error, or
	// identityNumber for validation errors.
	Field string
	// Message is safe to show to the end user.
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Side != "" {
		msg = fmt.Sprintf("%s (%s side)", msg, e.Side)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// asError returns err unchanged when it is already typed and wraps anything
// else as an internal error with a generic message.
func asError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{
		Kind:    KindInternal,
		Stage:   StateFailed,
		Message: "internal service error",
		Err:     err,
	}
}

func inputError(side Side, msg string) *Error {
	return &Error{Kind: KindInput, Stage: StateAwaitingInputs, Side: side, Message: msg}
}
