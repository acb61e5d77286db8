package gateway

import (
	"errors"
	"fmt"
)

// AuthRequiredError is returned by mutating calls made without a session.
type AuthRequiredError struct {
	Op string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s: you must be logged in", e.Op)
}

// RemoteError wraps a failure reported by the backend. Message is shown
// to the user as is.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// ValidationError is a client side check that failed before any call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsAuthRequired(err error) bool {
	var target *AuthRequiredError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// Message returns the text to show for err.
func Message(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}

	if IsAuthRequired(err) {
		return "You must be logged in."
	}

	return "Something went wrong."
}
