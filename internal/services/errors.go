package services

import (
	"errors"
	"fmt"
)

// Typed failures returned by the ledger, the bootstrapper, the message channel
// and the notification inbox. None of them is retried here.
var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateApplication = errors.New("already applied to this listing")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrUnauthorized         = errors.New("not authorized")
	ErrNotAcceptedYet       = errors.New("response has not been accepted yet")
	ErrAlreadyCompleted     = errors.New("response is already completed")
	ErrValidation           = errors.New("validation failed")

	// ErrUndoWindowElapsed is an ErrInvalidTransition.
	ErrUndoWindowElapsed = fmt.Errorf("%w: completion undo window has elapsed", ErrInvalidTransition)
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets callers match any ValidationError with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}
