// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Persistence errors
	ErrPersistence         = errors.New("persistence failure")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "learner", "catalog", "achievement"
	Op      string // Operation that failed, e.g., "SubmitScore", "Evaluate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Learner domain errors
var (
	ErrLearnerNotFound      = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrLearnerAlreadyExists = NewDomainError("learner", "Register", ErrAlreadyExists, "username or email already registered")
	ErrProgressNotFound     = NewDomainError("learner", "FindProgress", ErrNotFound, "no progress record for this course")
	ErrProgressExists       = NewDomainError("learner", "InitProgress", ErrAlreadyExists, "progress already initialized")
	ErrCourseLocked         = NewDomainError("learner", "SubmitScore", ErrStateTransition, "course is locked")
	ErrCourseFinished       = NewDomainError("learner", "SubmitScore", ErrStateTransition, "course is already completed or failed")
	ErrAlreadyEvaluated     = NewDomainError("learner", "Evaluate", ErrStateTransition, "course already completed or failed")
	ErrInvalidRatio         = NewDomainError("learner", "SubmitScore", ErrValueOutOfRange, "performance ratio must be within [0,1]")
)

// Catalog domain errors
var (
	ErrTrackNotFound      = NewDomainError("catalog", "FindTrack", ErrNotFound, "track not found")
	ErrCourseNotFound     = NewDomainError("catalog", "FindCourse", ErrNotFound, "course not found")
	ErrAssessmentNotFound = NewDomainError("catalog", "FindAssessment", ErrNotFound, "assessment does not belong to this course")
	ErrTrackOrderBroken   = NewDomainError("catalog", "Validate", ErrInvalidState, "course order within track is not contiguous")
	ErrInvalidWeight      = NewDomainError("catalog", "Validate", ErrValueOutOfRange, "assessment weight must be within 0..100")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found in catalog")
	ErrAlreadyAwarded      = NewDomainError("achievement", "Award", ErrAlreadyExists, "achievement already awarded")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStateTransition checks if the error is an invalid state transition.
// These surface to the user as warnings, never as server failures.
func IsStateTransition(err error) bool {
	return errors.Is(err, ErrStateTransition)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error is a concurrency conflict. Callers retry the
// whole submit/evaluate sequence once before surfacing the failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
