package repository

import (
	"context"
	"sort"
	"sync"

	"zone_dispatch/internal/allocator"
	"zone_dispatch/internal/models"
)

// MemoryStore is an in-memory allocator.Store used by tests and local
// development. It enforces the same uniqueness rules as the Postgres
// schema — (route_id, slot) across all statuses and (route_id,
// customer_id) — and rolls a transaction back by restoring a snapshot.
type MemoryStore struct {
	// txMu serializes whole transactions; mu guards individual operations.
	// Two mutexes because fn runs store methods that take mu themselves.
	txMu sync.Mutex
	mu   sync.Mutex

	nextID      uint
	cities      map[uint]models.City
	customers   map[uint]models.Customer
	routes      map[uint]models.Route
	assignments map[uint]models.Assignment

	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      1,
		cities:      make(map[uint]models.City),
		customers:   make(map[uint]models.Customer),
		routes:      make(map[uint]models.Route),
		assignments: make(map[uint]models.Assignment),
	}
}

type memSnapshot struct {
	nextID      uint
	cities      map[uint]models.City
	customers   map[uint]models.Customer
	routes      map[uint]models.Route
	assignments map[uint]models.Assignment
	writes      int
}

func (s *MemoryStore) snapshot() memSnapshot {
	return memSnapshot{
		nextID:      s.nextID,
		cities:      cloneMap(s.cities),
		customers:   cloneMap(s.customers),
		routes:      cloneMap(s.routes),
		assignments: cloneMap(s.assignments),
		writes:      s.writes,
	}
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.nextID = snap.nextID
	s.cities = snap.cities
	s.customers = snap.customers
	s.routes = snap.routes
	s.assignments = snap.assignments
	s.writes = snap.writes
}

func cloneMap[V any](m map[uint]V) map[uint]V {
	out := make(map[uint]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Transaction runs fn and restores the pre-transaction state on error.
// Transactions hold txMu end to end, so concurrent transactions serialize
// and a rollback can never clobber another transaction's committed writes.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx allocator.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

// WriteCount returns the number of mutating calls accepted so far. Tests
// use it to assert no-op paths really write nothing.
func (s *MemoryStore) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// SeedCity, SeedCustomer, SeedRoute and SeedAssignment install fixture rows
// directly, bypassing validation (the allocator's tests build broken states
// on purpose, e.g. inactive rows squatting on slots).

func (s *MemoryStore) SeedCity(city models.City) models.City {
	s.mu.Lock()
	defer s.mu.Unlock()
	if city.ID == 0 {
		city.ID = s.allocID()
	}
	s.cities[city.ID] = city
	return city
}

func (s *MemoryStore) SeedCustomer(customer models.Customer) models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.ID == 0 {
		customer.ID = s.allocID()
	}
	s.customers[customer.ID] = customer
	return customer
}

func (s *MemoryStore) SeedRoute(route models.Route) models.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	if route.ID == 0 {
		route.ID = s.allocID()
	}
	if route.Status == "" {
		route.Status = models.RouteStatusActive
	}
	s.routes[route.ID] = route
	return route
}

func (s *MemoryStore) SeedAssignment(a models.Assignment) models.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.allocID()
	}
	if a.Status == "" {
		a.Status = models.AssignmentStatusActive
	}
	s.assignments[a.ID] = a
	return a
}

func (s *MemoryStore) allocID() uint {
	id := s.nextID
	s.nextID++
	return id
}

func (s *MemoryStore) RouteByID(ctx context.Context, id uint) (*models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	route, ok := s.routes[id]
	if !ok {
		return nil, allocator.ErrNotFound
	}
	return &route, nil
}

func (s *MemoryStore) ActiveRoutes(ctx context.Context, excludeID uint) ([]models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Route
	for _, r := range s.routes {
		if r.ID != excludeID && r.IsActive() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateRoute(ctx context.Context, route *models.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	route.ID = s.allocID()
	s.routes[route.ID] = *route
	s.writes++
	return nil
}

func (s *MemoryStore) SaveRoute(ctx context.Context, route *models.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[route.ID]; !ok {
		return allocator.ErrNotFound
	}
	s.routes[route.ID] = *route
	s.writes++
	return nil
}

func (s *MemoryStore) DeleteRoute(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.routes, id)
	s.writes++
	return nil
}

func (s *MemoryStore) CityByID(ctx context.Context, id uint) (*models.City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	city, ok := s.cities[id]
	if !ok {
		return nil, allocator.ErrNotFound
	}
	return &city, nil
}

func (s *MemoryStore) CustomerByID(ctx context.Context, id uint) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, allocator.ErrNotFound
	}
	return &customer, nil
}

func (s *MemoryStore) CustomersByIDs(ctx context.Context, ids []uint) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Customer
	for _, id := range ids {
		if c, ok := s.customers[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteCustomer(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, id)
	s.writes++
	return nil
}

func (s *MemoryStore) ActiveAssignments(ctx context.Context, routeID uint) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.RouteID == routeID && a.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (s *MemoryStore) AssignmentsForRoute(ctx context.Context, routeID uint, lock bool) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.RouteID == routeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (s *MemoryStore) AssignmentFor(ctx context.Context, routeID, customerID uint) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.RouteID == routeID && a.CustomerID == customerID {
			row := a
			return &row, nil
		}
	}
	return nil, allocator.ErrNotFound
}

func (s *MemoryStore) ActiveAssignmentsForCustomer(ctx context.Context, customerID uint) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.CustomerID == customerID && a.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(a, 0); err != nil {
		return err
	}
	a.ID = s.allocID()
	s.assignments[a.ID] = *a
	s.writes++
	return nil
}

func (s *MemoryStore) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID]; !ok {
		return allocator.ErrNotFound
	}
	if err := s.checkUnique(a, a.ID); err != nil {
		return err
	}
	s.assignments[a.ID] = *a
	s.writes++
	return nil
}

func (s *MemoryStore) PurgeAssignments(ctx context.Context, routeID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.assignments {
		if a.RouteID == routeID {
			delete(s.assignments, id)
		}
	}
	s.writes++
	return nil
}

// checkUnique mirrors the schema's constraints: one row per (route, slot)
// regardless of status, one row per (route, customer).
func (s *MemoryStore) checkUnique(a *models.Assignment, selfID uint) error {
	for id, other := range s.assignments {
		if id == selfID || other.RouteID != a.RouteID {
			continue
		}
		if other.Slot == a.Slot || other.CustomerID == a.CustomerID {
			return allocator.ErrDuplicate
		}
	}
	return nil
}
