package engine

import (
	"errors"
	"fmt"

	"github.com/ukydev/fleet-costing/internal/models"
)

// ValidationError reports malformed or out-of-range input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing record, trip, cost entry or norm.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidAssetClassError reports a towing/reefer mismatch during allocation.
type InvalidAssetClassError struct {
	RecordID string
	Want     models.AssetClass
	Got      models.AssetClass
}

func (e *InvalidAssetClassError) Error() string {
	return fmt.Sprintf("record %s has asset class %q, operation requires %q", e.RecordID, e.Got, e.Want)
}

// ConflictError reports a state conflict, e.g. a concurrent mutation detected
// mid-transaction or an attempt to redo a terminal transition.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s", e.Entity, e.ID, e.Reason)
}

// PersistenceTimeoutError wraps a store call that exceeded its deadline after
// bounded retries. Retryable by the caller with backoff.
type PersistenceTimeoutError struct {
	Op  string
	Err error
}

func (e *PersistenceTimeoutError) Error() string {
	return fmt.Sprintf("persistence timeout during %s: %v", e.Op, e.Err)
}

func (e *PersistenceTimeoutError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error class permits a retry.
func IsRetryable(err error) bool {
	var pt *PersistenceTimeoutError
	var cf *ConflictError
	return errors.As(err, &pt) || errors.As(err, &cf)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func notFoundErr(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}
