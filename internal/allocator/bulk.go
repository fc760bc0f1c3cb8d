package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"zone_dispatch/internal/models"
)

// BulkCounts summarizes a bulk operation for the caller.
type BulkCounts struct {
	Requested     int `json:"requested"`
	Created       int `json:"created"`
	Reactivated   int `json:"reactivated"`
	AlreadyActive int `json:"already_active"`
	Capacity      int `json:"capacity"`
	Used          int `json:"used"`
	Free          int `json:"free"`
}

// BulkResult reports the outcome of BulkAssign per customer bucket.
type BulkResult struct {
	Created       []uint     `json:"created"`
	Reactivated   []uint     `json:"reactivated"`
	AlreadyActive []uint     `json:"already_active"`
	Counts        BulkCounts `json:"counts"`
}

// BulkAssign attaches a batch of customers to one route in a single
// all-or-nothing transaction. Requested customers are classified as new
// (no row for this route), reactivate (inactive row), or already-active;
// the capacity gate requires enough free slots for the first two buckets
// before anything is written. With reset set, every existing assignment
// row for the route is hard-deleted first, history included.
//
// Unlike AssignCustomer, this path does not retry when a candidate slot
// turns out to be held by an inactive row: the collision surfaces as
// allocation_failed and the transaction rolls back.
func (s *Service) BulkAssign(ctx context.Context, routeID uint, customerIDs []uint, reset bool) (*BulkResult, error) {
	ids := dedupe(customerIDs)
	if len(ids) == 0 {
		return nil, newError(KindValidation, "no customers requested")
	}

	var result *BulkResult
	err := s.store.Transaction(ctx, func(tx Store) error {
		route, err := tx.RouteByID(ctx, routeID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindRouteNotFound, "route %d not found", routeID)
			}
			return err
		}
		if route.Capacity() < 1 || route.RangeMin < 0 {
			return newError(KindValidation,
				"route %d has an invalid interval [%d,%d]", routeID, route.RangeMin, route.RangeMax)
		}

		customers, err := tx.CustomersByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(customers) != len(ids) {
			known := make(map[uint]bool, len(customers))
			for _, c := range customers {
				known[c.ID] = true
			}
			for _, id := range ids {
				if !known[id] {
					return newError(KindValidation, "customer %d does not exist", id)
				}
			}
		}

		if reset {
			if err := tx.PurgeAssignments(ctx, routeID); err != nil {
				return err
			}
		}

		// Locked scan: two concurrent bulk runs on the same route must not
		// both compute the same free set.
		rows, err := tx.AssignmentsForRoute(ctx, routeID, true)
		if err != nil {
			return err
		}
		byCustomer := make(map[uint]*models.Assignment, len(rows))
		taken := make(map[int]bool)
		used := 0
		for i := range rows {
			byCustomer[rows[i].CustomerID] = &rows[i]
			if rows[i].IsActive() {
				taken[rows[i].Slot] = true
				used++
			}
		}

		var newIDs []uint
		var reactivate []*models.Assignment
		var alreadyActive []uint
		for _, id := range ids {
			row, ok := byCustomer[id]
			switch {
			case !ok:
				newIDs = append(newIDs, id)
			case row.IsActive():
				alreadyActive = append(alreadyActive, id)
			default:
				reactivate = append(reactivate, row)
			}
		}

		capacity := route.Capacity()
		free := capacity - used
		need := len(newIDs) + len(reactivate)
		if need == 0 {
			return newError(KindNothingToAssign,
				"all %d requested customers are already active on route %d", len(alreadyActive), routeID)
		}
		if free < need {
			return &Error{
				Kind:    KindCapacityExceeded,
				Message: fmt.Sprintf("route %d has %d free slots, %d requested", routeID, free, need),
				Counts:  &Counts{Capacity: capacity, Used: used, Free: free, Requested: need},
			}
		}

		scan := slotScanner{min: route.RangeMin, max: route.RangeMax, taken: taken}

		result = &BulkResult{AlreadyActive: alreadyActive}

		// Reactivations first, keeping historical slots when still free.
		for _, row := range reactivate {
			slot := row.Slot
			if slot < route.RangeMin || slot > route.RangeMax || taken[slot] {
				var ok bool
				slot, ok = scan.next()
				if !ok {
					break // capacity gate makes this unreachable; stop rather than fail
				}
				row.Slot = slot
			}
			taken[slot] = true
			row.Status = models.AssignmentStatusActive
			if err := tx.SaveAssignment(ctx, row); err != nil {
				return mapBulkWriteError(err, routeID, slot)
			}
			result.Reactivated = append(result.Reactivated, row.CustomerID)
		}

		for _, id := range newIDs {
			slot, ok := scan.next()
			if !ok {
				break
			}
			taken[slot] = true
			a := models.Assignment{
				RouteID:    routeID,
				CustomerID: id,
				Slot:       slot,
				Status:     models.AssignmentStatusActive,
			}
			if err := tx.CreateAssignment(ctx, &a); err != nil {
				return mapBulkWriteError(err, routeID, slot)
			}
			result.Created = append(result.Created, id)
		}

		result.Counts = BulkCounts{
			Requested:     len(ids),
			Created:       len(result.Created),
			Reactivated:   len(result.Reactivated),
			AlreadyActive: len(alreadyActive),
			Capacity:      capacity,
			Used:          used + len(result.Created) + len(result.Reactivated),
			Free:          capacity - used - len(result.Created) - len(result.Reactivated),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"route_id":    routeID,
		"created":     result.Counts.Created,
		"reactivated": result.Counts.Reactivated,
		"skipped":     result.Counts.AlreadyActive,
	}).Info("allocator: bulk assignment committed")
	return result, nil
}

// mapBulkWriteError turns a uniqueness violation into allocation_failed.
// The free-slot scan only sees active rows, so an inactive row elsewhere in
// history can still hold the slot at the store level.
func mapBulkWriteError(err error, routeID uint, slot int) error {
	if errors.Is(err, ErrDuplicate) {
		return newError(KindAllocationFailed,
			"slot %d on route %d is held by an inactive assignment; retry or reset the route", slot, routeID)
	}
	return err
}

// slotScanner hands out free slots in ascending order within [min, max].
type slotScanner struct {
	min, max int
	taken    map[int]bool
	cursor   int
}

func (s *slotScanner) next() (int, bool) {
	if s.cursor < s.min {
		s.cursor = s.min
	}
	for ; s.cursor <= s.max; s.cursor++ {
		if !s.taken[s.cursor] {
			slot := s.cursor
			s.cursor++
			return slot, true
		}
	}
	return 0, false
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
