package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Failure taxonomy of the inventory engine. Every class is recoverable by
// the caller (retry with corrected input or a new key) and none leaves
// partial ledger state, because every multi-step operation is transactional.
// Anything outside this taxonomy is an infrastructure failure and surfaces
// to HTTP clients as a generic 500.

// ErrNotFound marks a referenced product, branch, transfer, reservation or
// count that does not exist. Wrap it with context: fmt.Errorf("product %s: %w", ...).
var ErrNotFound = errors.New("not found")

// InvalidInputError is a malformed or out-of-range request that slipped past
// binding-level validation (e.g. a bad sign for an entry type).
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }

// ValidationFailedError is a checkout whose client-computed figures disagree
// with the server recomputation beyond tolerance.
type ValidationFailedError struct {
	Reason string
}

func (e *ValidationFailedError) Error() string { return "validation failed: " + e.Reason }

// InsufficientStockError names the first product whose availability cannot
// cover the requested quantity. No side effect has been applied.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidStateError is a transition that is not legal from the entity's
// current state (e.g. shipping an already-received transfer).
type InvalidStateError struct {
	Entity string // "transfer" | "cycle count" | "reservation"
	Action string
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.Status)
}

// KeyConflictError is an idempotency key reused with a materially different
// payload. The caller must pick a new key; the original result is never
// silently replayed for a changed request.
type KeyConflictError struct {
	Key           string
	OperationType string
}

func (e *KeyConflictError) Error() string {
	return fmt.Sprintf("idempotency key %q already used for %s with a different payload",
		e.Key, e.OperationType)
}
