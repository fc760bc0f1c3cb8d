package allocator_test

import (
	"context"

	"zone_dispatch/internal/allocator"
	"zone_dispatch/internal/models"
	"zone_dispatch/internal/repository"
)

type fixture struct {
	svc   *allocator.Service
	store *repository.MemoryStore
	city  models.City
	ctx   context.Context
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	return &fixture{
		svc:   allocator.New(store),
		store: store,
		city:  store.SeedCity(models.City{Name: "Nakuru"}),
		ctx:   context.Background(),
	}
}

func (f *fixture) route(name string, min, max int, status string) models.Route {
	return f.store.SeedRoute(models.Route{
		CityID:   f.city.ID,
		Name:     name,
		RangeMin: min,
		RangeMax: max,
		Status:   status,
	})
}

func (f *fixture) customer(name string) models.Customer {
	return f.store.SeedCustomer(models.Customer{CityID: f.city.ID, Name: name})
}

func (f *fixture) assignment(routeID, customerID uint, slot int, status string) models.Assignment {
	return f.store.SeedAssignment(models.Assignment{
		RouteID:    routeID,
		CustomerID: customerID,
		Slot:       slot,
		Status:     status,
	})
}

func (f *fixture) activeSlots(routeID uint) []int {
	rows, _ := f.store.ActiveAssignments(f.ctx, routeID)
	slots := make([]int, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, r.Slot)
	}
	return slots
}
