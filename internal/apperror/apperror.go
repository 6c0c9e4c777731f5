// Package apperror defines the typed errors the forum surfaces to callers.
//
// Every service returns either nil, one of these errors (possibly wrapped), or
// an unexpected store failure. The HTTP layer maps the sentinels to status
// codes and user-facing messages; anything else becomes a generic 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound accepts numeric row ids as well as opaque string keys (sessions).
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateEmail is returned when registering an email that already has an account.
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: fmt.Sprintf("an account with email %s already exists", email),
		Field:   "email",
	}
}

// DuplicateEntry reports a collision on a unique key other than email, such
// as a session id that is already taken.
func DuplicateEntry(resource, name string) *AppError {
	return &AppError{
		Err:     ErrDuplicateEntry,
		Message: fmt.Sprintf("%s %q already exists", resource, name),
	}
}

// InvalidCredentials deliberately does not say whether the email or the
// password was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid email or password",
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
