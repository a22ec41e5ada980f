package domain

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Domain Errors
// These errors are shared by the progress engine, storage backends and the
// evaluation pipeline. Callers match them with errors.Is.
// -----------------------------------------------------------------------------

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPersistence       = errors.New("persistence failure")
	ErrEvaluationTimeout = errors.New("evaluation timed out")
)

// NotFoundError reports a week, exercise or topic that does not exist in the
// curriculum.
type NotFoundError struct {
	Kind string // "week", "exercise", "topic"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError reports structurally invalid input. The operation that
// returned it has not mutated any state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidation builds a ValidationError.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a storage backend failure.
type PersistenceError struct {
	Op     string // "load", "save", "delete"
	UserID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s progress for %s: %v", e.Op, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
