package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidExecContext  = errors.New("invalid execution context")
	ErrUnauthorized        = errors.New("not allowed to act on this resource")
	ErrUpstreamUnavailable = errors.New("text generation unavailable")
	ErrSessionBusy         = errors.New("session is processing another message")
	ErrSessionClosed       = errors.New("chat session is not active")
	ErrRateLimited         = errors.New("too many requests")
)

// ErrorKind classifies a failed action without exposing store internals.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindValidation ErrorKind = "validation"
	KindUnexpected ErrorKind = "unexpected"
)

// ValidationError reports bad caller input. Message is safe to show to users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// KindOf maps an error returned by a repository to an ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrInvalidArgument):
		return KindValidation
	default:
		return KindUnexpected
	}
}
