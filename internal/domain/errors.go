// Package domain defines the error taxonomy shared by the service layer.
// Services return these errors; the API layer is the only place they are
// translated to HTTP status codes.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds the API boundary distinguishes.
var (
	// ErrUnauthenticated is returned when no valid credential accompanies a call
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the acting user lacks the required access
	// level. The API boundary collapses it into NotFound so callers cannot
	// probe for resource existence.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when no matching resource exists
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input fields are missing or invalid
	ErrValidation = errors.New("validation failed")
)

// Error carries a sentinel kind together with a human-readable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated() *Error {
	return &Error{Kind: ErrUnauthenticated, Message: "authentication required"}
}

// Forbidden reports insufficient access for the acting user.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// NotFound reports a missing resource.
func NotFound(resource string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Validation reports a missing or invalid input field.
func Validation(field, message string) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf("%s: %s", field, message)}
}
