// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrValidation       = errors.New("validation failed")
	ErrExternalService  = errors.New("external service failure")
	ErrPersistence      = errors.New("persistence failure")
	ErrCreationNotFound = errors.New("creation not found")
)

// Request stages reported on failures.
const (
	StageValidating  = "validating"
	StageAuthorizing = "authorizing"
	StageInvoking    = "invoking_external"
	StagePersisting  = "persisting"
)

// Error is a business failure with a message safe to show to the caller.
type Error struct {
	Kind    error
	Message string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message, Stage: StageValidating}
}

// Code returns the machine-readable code for err, or "" if err is not a
// business failure.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return "QUOTA_EXCEEDED"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrExternalService):
		return "EXTERNAL_FAILURE"
	case errors.Is(err, ErrPersistence):
		return "PERSISTENCE_FAILURE"
	case errors.Is(err, ErrCreationNotFound):
		return "NOT_FOUND"
	}
	return ""
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return "Something went wrong. Please try again."
}

// Stage returns the request stage at which err occurred, if known.
func Stage(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Stage
	}
	return ""
}
