package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidStatus is returned when a task status is not one of the
	// known status values.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidPriority is returned when a task priority is outside the
	// allowed 1-5 range.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidComplexity is returned when a metadata complexity value is
	// not one of the known complexity levels.
	ErrInvalidComplexity = errors.New("invalid task complexity")
)
