package allocator

import (
	"context"
	"errors"

	"zone_dispatch/internal/models"
)

// Sentinel errors every Store implementation maps its driver errors onto.
var (
	// ErrDuplicate reports a write rejected by the (route_id, slot) or
	// (route_id, customer_id) uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound reports a lookup that matched no row.
	ErrNotFound = errors.New("record not found")
)

// Store is the transactional persistence the allocator runs against. The
// production implementation wraps GORM over Postgres; tests use an in-memory
// one. Write methods must surface uniqueness violations as ErrDuplicate —
// the single-slot retry loop depends on that signal.
type Store interface {
	// Transaction runs fn against a transactional view of the store and
	// commits on nil, rolling everything back on error.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	RouteByID(ctx context.Context, id uint) (*models.Route, error)
	// ActiveRoutes returns all active routes ordered by ID, excluding
	// excludeID when non-zero (used while editing that route).
	ActiveRoutes(ctx context.Context, excludeID uint) ([]models.Route, error)
	CreateRoute(ctx context.Context, route *models.Route) error
	SaveRoute(ctx context.Context, route *models.Route) error
	DeleteRoute(ctx context.Context, id uint) error

	CityByID(ctx context.Context, id uint) (*models.City, error)
	CustomerByID(ctx context.Context, id uint) (*models.Customer, error)
	CustomersByIDs(ctx context.Context, ids []uint) ([]models.Customer, error)
	DeleteCustomer(ctx context.Context, id uint) error

	// ActiveAssignments returns the route's active rows ordered by slot.
	ActiveAssignments(ctx context.Context, routeID uint) ([]models.Assignment, error)
	// AssignmentsForRoute returns every row for the route regardless of
	// status, ordered by slot. With lock set the rows are read FOR UPDATE
	// so concurrent bulk runs on the same route serialize.
	AssignmentsForRoute(ctx context.Context, routeID uint, lock bool) ([]models.Assignment, error)
	// AssignmentFor returns the row for (route, customer) in any status,
	// or ErrNotFound.
	AssignmentFor(ctx context.Context, routeID, customerID uint) (*models.Assignment, error)
	ActiveAssignmentsForCustomer(ctx context.Context, customerID uint) ([]models.Assignment, error)
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	SaveAssignment(ctx context.Context, a *models.Assignment) error
	// PurgeAssignments hard-deletes every row for the route, history
	// included. Used by bulk reset.
	PurgeAssignments(ctx context.Context, routeID uint) error
}
