// Package services implements the creator/admin-facing business logic that
// sits above the domain packages: profile and agent management, owner
// config, escalation triage, and decision analytics. Unlike pkg/orchestrator
// (the end-user hot path), every method here is called from an authenticated
// creator or admin request and favors explicit validation over the
// orchestrator's best-effort degradation.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create a duplicate entity
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConcurrentModification is returned when optimistic locking fails
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrForbidden is returned when the caller does not own the entity it is
	// trying to read or mutate.
	ErrForbidden = errors.New("forbidden")

	// ErrAgentLimitReached is returned when a profile already owns an agent
	// and attempts to create a second one.
	ErrAgentLimitReached = errors.New("agent limit reached")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
