package activity

import (
	"errors"
	"fmt"
)

// Classification sentinels. Every *Error matches exactly one of them via errors.Is.
var (
	// ErrInvalid indicates the request failed validation.
	ErrInvalid = errors.New("invalid request")
	// ErrNotFound indicates an unknown kind, activity, owner or card.
	ErrNotFound = errors.New("not found")
	// ErrCancelDenied indicates the activity is past its cancellable phase.
	ErrCancelDenied = errors.New("cancellation denied")
	// ErrInternal indicates a storage or invariant failure.
	ErrInternal = errors.New("internal error")
)

// Error is a domain failure carrying a human-readable reason and a classification.
type Error struct {
	Class  error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Reason)
}

// Is matches the classification sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Class
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Invalid builds a validation failure.
func Invalid(format string, args ...any) error {
	return &Error{Class: ErrInvalid, Reason: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found failure.
func NotFound(format string, args ...any) error {
	return &Error{Class: ErrNotFound, Reason: fmt.Sprintf(format, args...)}
}

// CancelDenied builds a cancellation-denied failure.
func CancelDenied(format string, args ...any) error {
	return &Error{Class: ErrCancelDenied, Reason: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure.
func Internal(reason string, err error) error {
	return &Error{Class: ErrInternal, Reason: reason, Err: err}
}

// ClassOf returns the classification sentinel of err, or ErrInternal.
func ClassOf(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de.Class
	}
	return ErrInternal
}

// ReasonOf returns the human-readable reason carried by err.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return err.Error()
}
