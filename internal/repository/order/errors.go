package order

import (
	"errors"
	"fmt"

	"github.com/bazaarlabs/bazaar/internal/entity"
)

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// VersionConflictError reports an optimistic-lock mismatch. The stored document
// is left untouched; the caller should re-fetch and retry.
type VersionConflictError struct {
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, found %d", e.Expected, e.Actual)
}

// TransitionError reports an edge missing from the status lifecycle graph.
type TransitionError struct {
	From entity.Status
	To   entity.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// CancelStateError reports a cancellation attempted after shipment.
type CancelStateError struct {
	Status entity.Status
}

func (e *CancelStateError) Error() string {
	return fmt.Sprintf("cannot cancel order in status %s", e.Status)
}
