package core

import "github.com/pkg/errors"

// FieldError ties a validation failure to the struct field that caused it.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries a request-level error plus any per-field details.
// Handlers map it to a 400 response rather than a 500.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks an error severe enough that the service should stop
// rather than keep serving.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err (or its cause) asks for a service stop.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
