// Package http serves the ledger as a JSON API.
//
// This file holds the builder used by every handler to write JSON bodies,
// and the mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tracker/internal/core"
	"tracker/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(messageBody{Message: msg})
}

// Write sends the built response. The body is encoded before the status is
// written so an encoding failure can still become a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	var data []byte
	if b.body != nil {
		var err error
		data, err = json.Marshal(b.body)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"Failed to encode response."}` + "\n"))
			return
		}
		data = append(data, '\n')
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(b.statusCode)
	if len(data) > 0 {
		_, _ = w.Write(data)
	}
}

type messageBody struct {
	Message string `json:"message"`
}

// ErrorResponse creates a {"message": ...} response with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ServiceError maps a ledger error to a response. Validation failures name
// the field, not-found errors the index or ID; anything else is a 500 whose
// cause is logged but not sent.
func ServiceError(r *http.Request, err error) *JSONResponseBuilder {
	var (
		validation *core.ValidationError
		notFound   *core.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return BadRequestError(fmt.Sprintf("Invalid %s: %s.", validation.Field, validation.Reason))
	case errors.As(err, &notFound):
		if notFound.ByID {
			return NotFoundError(fmt.Sprintf("Transaction %d not found.", notFound.ID))
		}
		return NotFoundError(fmt.Sprintf("Transaction at index %d not found.", notFound.Index))
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Transaction not found.")
	case errors.Is(err, core.ErrDegenerateInput):
		return UnprocessableEntityError("Cannot fit a trend line to this data.")
	}

	logger := log.FromContext(r.Context())
	errorType := log.ErrorTypeInternal
	msg := "Internal server error."
	if errors.Is(err, core.ErrStorageUnavailable) {
		errorType = log.ErrorTypeStorage
		msg = "Ledger storage unavailable."
	}
	logger.ErrorContext(r.Context(), "Request failed",
		log.FieldError, err,
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldErrorType, errorType)
	return InternalServerError(msg)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed.").
		Header("Allow", allowedMethods)
}
