package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewNotTracked reports that an operation target is absent from a registry.
// Non-fatal: callers log it and move on.
func NewNotTracked(resource string, id int64) error {
	return &DomainError{
		Code:       "NOT_TRACKED",
		Message:    fmt.Sprintf("%s is not tracked", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"id": fmt.Sprintf("%d", id)},
	}
}

// NewAlreadyTracked reports a duplicate registry add. Non-fatal.
func NewAlreadyTracked(resource string, id int64) error {
	return &DomainError{
		Code:       "ALREADY_TRACKED",
		Message:    fmt.Sprintf("%s is already tracked", resource),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"id": fmt.Sprintf("%d", id)},
	}
}

// NewAmbiguous reports a condition that could not be determined. Never
// destructive: callers treat the subject as unchanged.
func NewAmbiguous(message string) error {
	return NewDomainError("AMBIGUOUS", message, http.StatusServiceUnavailable, nil)
}

// NewPersistenceFailure reports that a durable write did not complete. The
// in-memory mutation is kept; the caller must be told state has diverged.
func NewPersistenceFailure(err error) error {
	return &DomainError{
		Code:       "PERSISTENCE_FAILURE",
		Message:    "durable write did not complete",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
