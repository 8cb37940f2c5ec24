// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Edit errors.
	ErrNothingToApply = errors.New("nothing to apply: provide a variety or a transplant date")
	ErrNoSelection    = errors.New("no parcels selected")

	// Import errors.
	ErrNoUsableIDs = errors.New("no records carry a polygon_uuid")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// External sources named in FetchError and EmptyResultNotice.
const (
	SourceGeometry   = "geometry"
	SourceAttributes = "attributes"
	SourcePrediction = "prediction"
	SourceImport     = "import"
)

// ValidationError reports missing or malformed input. It is raised locally and
// never involves a network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for the named field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// FetchError reports an unreachable or failing external source.
type FetchError struct {
	Err        error
	Source     string
	StatusCode int
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s source returned status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s source unavailable: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// EmptyResultNotice reports a successful fetch that produced nothing usable.
// It is informational, not a failure.
type EmptyResultNotice struct {
	Source string
	Detail string
}

func (e *EmptyResultNotice) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s source returned no usable data: %s", e.Source, e.Detail)
	}
	return fmt.Sprintf("%s source returned no usable data", e.Source)
}

// ServiceError reports a failed prediction call for one parcel.
type ServiceError struct {
	Err        error
	ParcelID   string
	Message    string
	StatusCode int
}

func (e *ServiceError) Error() string {
	if e.ParcelID != "" {
		return fmt.Sprintf("prediction for parcel %s failed: %s", e.ParcelID, e.Message)
	}
	return fmt.Sprintf("prediction failed: %s", e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed write to the attribute store. Local state is
// not rolled back when this happens.
type PersistenceError struct {
	Err      error
	ParcelID string
	Op       string
}

func (e *PersistenceError) Error() string {
	if e.ParcelID != "" {
		return fmt.Sprintf("%s parcel %s: %v", e.Op, e.ParcelID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsEmptyResult reports whether err is an EmptyResultNotice.
func IsEmptyResult(err error) bool {
	var notice *EmptyResultNotice
	return errors.As(err, &notice)
}
