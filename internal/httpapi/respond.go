package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ironsheep/idcard-ocr/internal/pipeline"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody describes a failure. Code is a pipeline.Kind.
type ErrorBody struct {
	Code    pipeline.Kind `json:"code"`
	Message string        `json:"message"`
	Field   string        `json:"field,omitempty"`
	Side    pipeline.Side `json:"side,omitempty"`
}

// JSON sends data as a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// NewErrorResponse builds the body for err. Errors that are not
// *pipeline.Error are reported as internal errors without detail.
func NewErrorResponse(err error) (int, ErrorResponse) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		pe = &pipeline.Error{Kind: pipeline.KindInternal, Message: "internal service error"}
	}
	return pe.Kind.HTTPStatus(), ErrorResponse{
		Success: false,
		Error: ErrorBody{
			Code:    pe.Kind,
			Message: pe.Message,
			Field:   pe.Field,
			Side:    pe.Side,
		},
	}
}

// Error sends err with the status its kind maps to.
func Error(w http.ResponseWriter, err error) {
	status, body := NewErrorResponse(err)
	JSON(w, status, body)
}
