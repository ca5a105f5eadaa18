// Package errs defines the service error taxonomy and its mapping to HTTP
// status codes. Background step failures never reach the HTTP layer directly;
// they are converted by the orchestrator into retry or terminal-error
// decisions.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation marks bad caller input. Never retried.
func Validation(message string) *Error {
	return &Error{Code: "VALIDATION_ERROR", Status: http.StatusBadRequest, Message: message}
}

// NotFound marks a missing job or artifact.
func NotFound(resource string) *Error {
	return &Error{Code: "NOT_FOUND", Status: http.StatusNotFound, Message: resource + " not found"}
}

// NotReady marks a result requested before the pipeline produced it.
func NotReady(message string) *Error {
	return &Error{Code: "NOT_READY", Status: http.StatusAccepted, Message: message}
}

// Processing marks a pipeline step failure, subject to the retry policy.
func Processing(step string, err error) *Error {
	return &Error{
		Code:    "PROCESSING_ERROR",
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("Error in %s: %v", step, err),
		Err:     err,
	}
}

// External marks a failed collaborator call, subject to the retry policy.
func External(service string, err error) *Error {
	return &Error{
		Code:    "EXTERNAL_SERVICE_ERROR",
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("%s error: %v", service, err),
		Err:     err,
	}
}

// HTTPStatus maps any error to a response status. Unknown errors map to 500
// so handlers can avoid leaking internals.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to put in a response body.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An unknown error occurred"
}
