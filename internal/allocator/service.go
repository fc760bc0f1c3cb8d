// Package allocator implements the slot and interval allocation engine:
// route interval overlap detection, gap-aware slot assignment with bounded
// retry, and bulk assignment under a capacity budget. It owns the real
// invariants of the system; HTTP controllers stay thin around it.
package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"zone_dispatch/internal/interval"
	"zone_dispatch/internal/models"
)

const (
	// maxSlotAttempts bounds the retry loop of AssignCustomer.
	maxSlotAttempts = 3
	// suggestSearchStart is where free-range suggestions begin scanning.
	// Dispatch ranges are conventionally 1-based.
	suggestSearchStart = 1
)

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// FindConflict returns the first active route whose interval intersects the
// candidate, skipping excludeID (used while editing that route). Ties break
// on lowest route ID. Returns nil when the candidate is clear.
func (s *Service) FindConflict(ctx context.Context, candidate interval.Span, excludeID uint) (*models.Route, error) {
	routes, err := s.store.ActiveRoutes(ctx, excludeID)
	if err != nil {
		return nil, err
	}
	for i := range routes {
		span := interval.Span{Min: routes[i].RangeMin, Max: routes[i].RangeMax}
		if candidate.Overlaps(span) {
			return &routes[i], nil
		}
	}
	return nil, nil
}

// FirstFreeFrom reports the first point not covered by any active route
// interval at or after start, plus the end of that free stretch. Advisory
// only; nothing is reserved.
func (s *Service) FirstFreeFrom(ctx context.Context, start int) (from int, to int, bounded bool, err error) {
	blocks, err := s.activeBlocks(ctx, 0)
	if err != nil {
		return 0, 0, false, err
	}
	from, to, bounded = interval.FirstFreeFrom(blocks, start)
	return from, to, bounded, nil
}

// SuggestSpan returns the first free span of the given size, searching from
// the conventional start of the range space. Used to propose an alternative
// interval when a candidate is rejected for overlap.
func (s *Service) SuggestSpan(ctx context.Context, size int, excludeID uint) (interval.Span, error) {
	blocks, err := s.activeBlocks(ctx, excludeID)
	if err != nil {
		return interval.Span{}, err
	}
	return interval.FirstFreeSpan(blocks, suggestSearchStart, size), nil
}

func (s *Service) activeBlocks(ctx context.Context, excludeID uint) ([]interval.Span, error) {
	routes, err := s.store.ActiveRoutes(ctx, excludeID)
	if err != nil {
		return nil, err
	}
	spans := make([]interval.Span, 0, len(routes))
	for _, r := range routes {
		spans = append(spans, interval.Span{Min: r.RangeMin, Max: r.RangeMax})
	}
	return interval.Merge(spans), nil
}

// overlapError builds the route_overlap failure for a rejected candidate,
// naming the conflicting route and attaching a suggested free span of the
// same size.
func (s *Service) overlapError(ctx context.Context, candidate interval.Span, conflict *models.Route, excludeID uint) error {
	e := &Error{
		Kind:          KindRouteOverlap,
		ConflictRoute: conflict,
		Message: fmt.Sprintf("interval [%d,%d] overlaps active route %q [%d,%d]",
			candidate.Min, candidate.Max, conflict.Name, conflict.RangeMin, conflict.RangeMax),
	}
	suggestion, err := s.SuggestSpan(ctx, candidate.Size(), excludeID)
	if err != nil {
		logrus.WithError(err).Warn("allocator: could not compute suggestion for overlap conflict")
		return e
	}
	e.Suggestion = &suggestion
	e.Message += fmt.Sprintf("; nearest free range is [%d,%d]", suggestion.Min, suggestion.Max)
	return e
}

type CreateRouteInput struct {
	CityID   uint
	Name     string
	RangeMin int
	RangeMax int
	Boundary []byte
}

// CreateRoute validates the interval, checks it against every active route
// globally, and persists the new route as active.
func (s *Service) CreateRoute(ctx context.Context, in CreateRouteInput) (*models.Route, error) {
	if err := validateBounds(in.RangeMin, in.RangeMax); err != nil {
		return nil, err
	}
	var route *models.Route
	err := s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.CityByID(ctx, in.CityID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindValidation, "city %d does not exist", in.CityID)
			}
			return err
		}
		candidate := interval.Span{Min: in.RangeMin, Max: in.RangeMax}
		txSvc := New(tx)
		conflict, err := txSvc.FindConflict(ctx, candidate, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return txSvc.overlapError(ctx, candidate, conflict, 0)
		}
		route = &models.Route{
			CityID:   in.CityID,
			Name:     in.Name,
			RangeMin: in.RangeMin,
			RangeMax: in.RangeMax,
			Status:   models.RouteStatusActive,
			Boundary: in.Boundary,
		}
		return tx.CreateRoute(ctx, route)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"route_id": route.ID, "range_min": route.RangeMin, "range_max": route.RangeMax,
	}).Info("allocator: route created")
	return route, nil
}

type RoutePatch struct {
	Name     *string
	CityID   *uint
	RangeMin *int
	RangeMax *int
	Boundary []byte
}

// UpdateRoute applies a partial patch. Interval changes re-run the overlap
// check (excluding the route itself) and are rejected if any currently
// active slot would fall outside the new bounds.
func (s *Service) UpdateRoute(ctx context.Context, id uint, patch RoutePatch) (*models.Route, error) {
	var route *models.Route
	err := s.store.Transaction(ctx, func(tx Store) error {
		var err error
		route, err = tx.RouteByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindRouteNotFound, "route %d not found", id)
			}
			return err
		}

		if patch.Name != nil {
			route.Name = *patch.Name
		}
		if patch.CityID != nil {
			if _, err := tx.CityByID(ctx, *patch.CityID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return newError(KindValidation, "city %d does not exist", *patch.CityID)
				}
				return err
			}
			route.CityID = *patch.CityID
		}
		if patch.Boundary != nil {
			route.Boundary = patch.Boundary
		}

		boundsChanged := false
		if patch.RangeMin != nil && *patch.RangeMin != route.RangeMin {
			route.RangeMin = *patch.RangeMin
			boundsChanged = true
		}
		if patch.RangeMax != nil && *patch.RangeMax != route.RangeMax {
			route.RangeMax = *patch.RangeMax
			boundsChanged = true
		}
		if boundsChanged {
			if err := validateBounds(route.RangeMin, route.RangeMax); err != nil {
				return err
			}
			candidate := interval.Span{Min: route.RangeMin, Max: route.RangeMax}
			if route.IsActive() {
				txSvc := New(tx)
				conflict, err := txSvc.FindConflict(ctx, candidate, route.ID)
				if err != nil {
					return err
				}
				if conflict != nil {
					return txSvc.overlapError(ctx, candidate, conflict, route.ID)
				}
			}
			active, err := tx.ActiveAssignments(ctx, route.ID)
			if err != nil {
				return err
			}
			for _, a := range active {
				if a.Slot < route.RangeMin || a.Slot > route.RangeMax {
					return newError(KindValidation,
						"cannot shrink interval: customer %d holds slot %d outside [%d,%d]",
						a.CustomerID, a.Slot, route.RangeMin, route.RangeMax)
				}
			}
		}

		return tx.SaveRoute(ctx, route)
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// SetRouteStatus flips a route between active and inactive. Activation
// re-validates the interval against current active routes, since the
// route's own interval was exempt from the invariant while inactive.
func (s *Service) SetRouteStatus(ctx context.Context, id uint, status string) (*models.Route, error) {
	if status != models.RouteStatusActive && status != models.RouteStatusInactive {
		return nil, newError(KindValidation, "invalid status %q", status)
	}
	var route *models.Route
	err := s.store.Transaction(ctx, func(tx Store) error {
		var err error
		route, err = tx.RouteByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindRouteNotFound, "route %d not found", id)
			}
			return err
		}
		if route.Status == status {
			return nil
		}
		if status == models.RouteStatusActive {
			candidate := interval.Span{Min: route.RangeMin, Max: route.RangeMax}
			txSvc := New(tx)
			conflict, err := txSvc.FindConflict(ctx, candidate, route.ID)
			if err != nil {
				return err
			}
			if conflict != nil {
				return txSvc.overlapError(ctx, candidate, conflict, route.ID)
			}
		}
		route.Status = status
		return tx.SaveRoute(ctx, route)
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// DeleteRoute removes a route that has no active assignments. Routes with
// attached customers must be detached first or deactivated instead.
func (s *Service) DeleteRoute(ctx context.Context, id uint) error {
	return s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.RouteByID(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindRouteNotFound, "route %d not found", id)
			}
			return err
		}
		active, err := tx.ActiveAssignments(ctx, id)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return newError(KindHasDependents,
				"route %d still has %d active customers; detach them first or set the route inactive", id, len(active))
		}
		return tx.DeleteRoute(ctx, id)
	})
}

// DeleteCustomer removes a customer that holds no active assignment.
func (s *Service) DeleteCustomer(ctx context.Context, id uint) error {
	return s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.CustomerByID(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(KindValidation, "customer %d does not exist", id)
			}
			return err
		}
		active, err := tx.ActiveAssignmentsForCustomer(ctx, id)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return newError(KindHasDependents,
				"customer %d is still assigned to route %d; unassign first", id, active[0].RouteID)
		}
		return tx.DeleteCustomer(ctx, id)
	})
}

func validateBounds(min, max int) error {
	if min < 0 {
		return newError(KindValidation, "range_min must be >= 0, got %d", min)
	}
	if max < min {
		return newError(KindValidation, "range_max %d is below range_min %d", max, min)
	}
	return nil
}
