package allocator

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"zone_dispatch/internal/models"
)

// AssignResult reports where a customer landed after AssignCustomer.
type AssignResult struct {
	RouteID    uint `json:"route_id"`
	CustomerID uint `json:"customer_id"`
	Slot       int  `json:"slot"`
	// Reused is true when an existing row satisfied the request: either the
	// customer was already active on the route (no-op) or an inactive row
	// was reactivated with its historical slot.
	Reused bool `json:"reused"`
}

// AssignCustomer attaches the customer to the route, moving it from any
// route it currently occupies. cityID, when non-zero, asserts the route
// belongs to that city.
//
// Slot computation only sees active rows, while the store's (route, slot)
// uniqueness spans all rows; a slot that looks free can therefore be
// rejected at commit. Each attempt runs in its own transaction and a
// rejected slot is blocked from re-proposal, bounded at maxSlotAttempts
// before the operation fails as allocation_failed.
func (s *Service) AssignCustomer(ctx context.Context, customerID, routeID, cityID uint) (*AssignResult, error) {
	blocked := make(map[int]bool)

	for attempt := 1; attempt <= maxSlotAttempts; attempt++ {
		res, err := s.tryAssign(ctx, customerID, routeID, cityID, blocked)
		if err == nil {
			return res, nil
		}

		var conflict *slotConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		blocked[conflict.slot] = true
		logrus.WithFields(logrus.Fields{
			"route_id":    routeID,
			"customer_id": customerID,
			"slot":        conflict.slot,
			"attempt":     attempt,
		}).Warn("allocator: slot collided at commit, retrying")
	}

	return nil, newError(KindAllocationFailed,
		"could not place customer %d on route %d after %d attempts", customerID, routeID, maxSlotAttempts)
}

func (s *Service) tryAssign(ctx context.Context, customerID, routeID, cityID uint, blocked map[int]bool) (*AssignResult, error) {
	var result *AssignResult
	err := s.store.Transaction(ctx, func(tx Store) error {
		route, err := tx.RouteByID(ctx, routeID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindRouteNotFound, "route %d not found", routeID)
			}
			return err
		}
		if !route.IsActive() {
			return newError(KindRouteInactive, "route %d is inactive", routeID)
		}
		if cityID != 0 && route.CityID != cityID {
			return newError(KindCityMismatch,
				"route %d belongs to city %d, not city %d", routeID, route.CityID, cityID)
		}
		if _, err := tx.CustomerByID(ctx, customerID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindValidation, "customer %d does not exist", customerID)
			}
			return err
		}

		existing, err := tx.AssignmentFor(ctx, routeID, customerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		// Already active here: return the held slot unchanged.
		if existing != nil && existing.IsActive() {
			result = &AssignResult{RouteID: routeID, CustomerID: customerID, Slot: existing.Slot, Reused: true}
			return nil
		}

		// At most one active route per customer: detach from everywhere else.
		others, err := tx.ActiveAssignmentsForCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for i := range others {
			others[i].Status = models.AssignmentStatusInactive
			if err := tx.SaveAssignment(ctx, &others[i]); err != nil {
				return err
			}
		}

		active, err := tx.ActiveAssignments(ctx, routeID)
		if err != nil {
			return err
		}
		taken := make(map[int]bool, len(active))
		for _, a := range active {
			taken[a.Slot] = true
		}

		// Returning customer: reactivate with the historical slot when no
		// other row holds it, avoiding needless renumbering.
		if existing != nil {
			if existing.Slot >= route.RangeMin && existing.Slot <= route.RangeMax &&
				!taken[existing.Slot] && !blocked[existing.Slot] {
				existing.Status = models.AssignmentStatusActive
				if err := tx.SaveAssignment(ctx, existing); err != nil {
					return err
				}
				result = &AssignResult{RouteID: routeID, CustomerID: customerID, Slot: existing.Slot, Reused: true}
				return nil
			}
		}

		slot, ok := lowestFreeSlot(route, taken, blocked)
		if !ok {
			// A slot that is free among active rows but sits in blocked was
			// lost to a commit conflict, not to capacity: hand it back to the
			// retry accounting so exhaustion reports allocation_failed.
			if ghost, free := lowestFreeSlot(route, taken, nil); free {
				return &slotConflictError{slot: ghost}
			}
			capacity := route.Capacity()
			used := len(active)
			return &Error{
				Kind:    KindCapacityExhausted,
				Message: "no free slot on route " + route.Name,
				Counts:  &Counts{Capacity: capacity, Used: used, Free: capacity - used},
			}
		}

		var write error
		if existing != nil {
			existing.Slot = slot
			existing.Status = models.AssignmentStatusActive
			write = tx.SaveAssignment(ctx, existing)
		} else {
			write = tx.CreateAssignment(ctx, &models.Assignment{
				RouteID:    routeID,
				CustomerID: customerID,
				Slot:       slot,
				Status:     models.AssignmentStatusActive,
			})
		}
		if write != nil {
			if errors.Is(write, ErrDuplicate) {
				return &slotConflictError{slot: slot}
			}
			return write
		}

		result = &AssignResult{RouteID: routeID, CustomerID: customerID, Slot: slot}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnassignCustomer deactivates every active assignment the customer holds.
// Rows are kept as history so a later reassignment can reuse the slot.
func (s *Service) UnassignCustomer(ctx context.Context, customerID uint) error {
	return s.store.Transaction(ctx, func(tx Store) error {
		active, err := tx.ActiveAssignmentsForCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for i := range active {
			active[i].Status = models.AssignmentStatusInactive
			if err := tx.SaveAssignment(ctx, &active[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// lowestFreeSlot scans ascending from the interval floor for the first slot
// neither held by an active row nor blocked by a previous commit conflict.
func lowestFreeSlot(route *models.Route, taken, blocked map[int]bool) (int, bool) {
	for slot := route.RangeMin; slot <= route.RangeMax; slot++ {
		if !taken[slot] && !blocked[slot] {
			return slot, true
		}
	}
	return 0, false
}
