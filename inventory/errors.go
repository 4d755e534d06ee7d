/*
errors.go - Centralized error taxonomy for the inventory core

PURPOSE:
  One place for every error kind the core can return. The HTTP layer maps
  these kinds to status codes; the core only ever returns a kind plus a
  descriptive message.

ERROR KINDS:
  ErrInvalidArgument   malformed/out-of-range input, caught before any store access
  ErrNotFound          referenced product or category does not exist
  ErrConflict          unique constraint violation (sku, category name)
  ErrInsufficientStock sale quantity exceeds available stock
  ErrInternal          store/transaction failure

USAGE:
  Structured errors wrap the sentinels, so callers use errors.Is for the
  kind and errors.As for the details:

    var insufficient *inventory.InsufficientStockError
    if errors.As(err, &insufficient) {
        log.Printf("available %d", insufficient.Available)
    }
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned for input that fails validation before
	// any store access.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a referenced product or category is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on uniqueness violations (duplicate sku or
	// duplicate category name), whether caught by the application check or
	// by the store constraint backstop.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientStock is returned when a sale requests more units than
	// are available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInternal is returned for store or transaction failures.
	ErrInternal = errors.New("internal error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// NotFoundError identifies the missing row.
type NotFoundError struct {
	Kind string // "product" or "category"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Field string // "sku" or "category name"
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InsufficientStockError reports available vs requested for a failed sale.
type InsufficientStockError struct {
	ProductID ProductID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool        { return errors.Is(err, ErrConflict) }

func IsInsufficientStock(err error) bool { return errors.Is(err, ErrInsufficientStock) }

// IsClientError returns true if the error is due to invalid client input
// rather than a store failure.
func IsClientError(err error) bool {
	return IsInvalidArgument(err) || IsNotFound(err) || IsConflict(err) || IsInsufficientStock(err)
}
