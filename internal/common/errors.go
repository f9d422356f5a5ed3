// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Provider errors.
	ErrNoAccessToken   = errors.New("no access token available")
	ErrPlaidConnection = errors.New("plaid connection failed")
	ErrPlaidRateLimit  = errors.New("plaid rate limit exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseError indicates that a value could not be parsed by any known format.
type ParseError struct {
	Input     string
	Attempted []string
}

func (e *ParseError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("could not parse %q", e.Input)
	}
	return fmt.Sprintf("could not parse %q; attempted formats: %s", e.Input, strings.Join(e.Attempted, ", "))
}

// NewParseError creates a parse error recording every format that was tried.
func NewParseError(input string, attempted []string) error {
	return &ParseError{Input: input, Attempted: attempted}
}

// ValidationError indicates that a caller-supplied record failed validation.
// Problems accumulates every failed check so the caller sees them all at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// NewValidationError creates a validation error from one or more problems.
func NewValidationError(problems ...string) error {
	return &ValidationError{Problems: problems}
}

// NotFoundError indicates that a referenced entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFoundError creates a not-found error for the given entity.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// StorageError wraps a persistence read/write failure with its operation context.
type StorageError struct {
	Err        error
	Op         string
	Collection string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a storage failure for op on collection.
func NewStorageError(op, collection string, err error) error {
	return &StorageError{Op: op, Collection: collection, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nferr *NotFoundError
	return errors.As(err, &nferr)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
