// Package shared contains the errors and events used across all domain
// packages. This package has zero external dependencies.
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
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState         = errors.New("invalid state")
	ErrExpired              = errors.New("expired")
	ErrConfirmationRequired = errors.New("confirmation required")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
	ErrCanceled           = errors.New("operation canceled")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "directory", "listing", "session"
	Op      string // Operation that failed, e.g., "Block", "Delete"
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

// Directory domain errors
var (
	ErrRecordNotFound   = NewDomainError("directory", "Find", ErrNotFound, "record not found")
	ErrDuplicateRecord  = NewDomainError("directory", "Load", ErrAlreadyExists, "duplicate record identifier")
	ErrInvalidRecordID  = NewDomainError("directory", "Validate", ErrInvalidID, "invalid record identifier")
	ErrNegativeReferral = NewDomainError("directory", "Validate", ErrNegativeValue, "referral count cannot be negative")
	ErrNegativeEarnings = NewDomainError("directory", "Validate", ErrNegativeValue, "total earnings cannot be negative")
)

// Listing domain errors
var (
	ErrUnknownSelection = NewDomainError("listing", "Validate", ErrValidation, "unknown filter selection")
	ErrUnknownSortField = NewDomainError("listing", "Validate", ErrValidation, "unknown sort field")
	ErrUnknownSortOrder = NewDomainError("listing", "Validate", ErrValidation, "unknown sort order")
	ErrInvalidPage      = NewDomainError("listing", "Validate", ErrValueOutOfRange, "page must be positive")
)

// Session domain errors
var (
	ErrSessionNotFound = NewDomainError("session", "Get", ErrNotFound, "session not found")
	ErrSessionExpired  = NewDomainError("session", "Get", ErrExpired, "session expired")
	ErrNotSignedIn     = NewDomainError("session", "Guard", ErrUnauthorized, "not signed in")
	ErrRoleMismatch    = NewDomainError("session", "Guard", ErrForbidden, "role not allowed")
	ErrInvalidRole     = NewDomainError("session", "Validate", ErrInvalidInput, "invalid role")
	ErrEmptyToken      = NewDomainError("session", "Validate", ErrEmptyValue, "token cannot be empty")
)

// Mutation errors
var (
	ErrDeleteNotConfirmed = NewDomainError("directory", "Delete", ErrConfirmationRequired, "deletion must be confirmed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsAuth checks if the error should end the request as unauthenticated or forbidden.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrExpired)
}

// Displayable is implemented by errors whose message can be shown to the operator verbatim.
type Displayable interface {
	error
	Display() string
}

// DisplayMessage returns the displayable message carried by err, or fallback.
func DisplayMessage(err error, fallback string) string {
	var d Displayable
	if errors.As(err, &d) && d.Display() != "" {
		return d.Display()
	}
	return fallback
}
