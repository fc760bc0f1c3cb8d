package allocator

import (
	"errors"
	"fmt"

	"zone_dispatch/internal/interval"
	"zone_dispatch/internal/models"
)

// Kind is the stable machine-readable failure class reported to callers.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindRouteNotFound     Kind = "route_not_found"
	KindRouteInactive     Kind = "route_inactive"
	KindCityMismatch      Kind = "city_mismatch"
	KindRouteOverlap      Kind = "route_overlap"
	KindCapacityExhausted Kind = "capacity_exhausted"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindNothingToAssign   Kind = "nothing_to_assign"
	KindAllocationFailed  Kind = "allocation_failed"
	KindHasDependents     Kind = "has_dependents"
)

// Counts carries the capacity diagnostics attached to capacity failures so
// the caller can present actionable guidance.
type Counts struct {
	Capacity  int `json:"capacity"`
	Used      int `json:"used"`
	Free      int `json:"free"`
	Requested int `json:"requested,omitempty"`
}

// Error is the allocator's failure type. Every failed operation returns one
// (store errors excepted, which propagate unchanged), and every failure rolls
// back the enclosing transaction.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// Set on route_overlap failures.
	ConflictRoute *models.Route  `json:"conflict_route,omitempty"`
	Suggestion    *interval.Span `json:"suggestion,omitempty"`

	// Set on capacity failures.
	Counts *Counts `json:"counts,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// IsKind reports whether err is an allocator Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// AsError unwraps err into an allocator Error, or nil.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// slotConflictError signals that a computed-free slot collided with the
// store's uniqueness constraint at commit time. Internal to the retry loop.
type slotConflictError struct {
	slot int
}

func (e *slotConflictError) Error() string {
	return fmt.Sprintf("slot %d already held at commit time", e.slot)
}
