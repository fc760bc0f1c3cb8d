package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zone_dispatch/internal/allocator"
	"zone_dispatch/internal/models"
)

// GormStore implements allocator.Store over GORM/Postgres. All methods map
// driver-level errors onto the allocator sentinels so the engine never sees
// gorm or pgconn types.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx allocator.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) RouteByID(ctx context.Context, id uint) (*models.Route, error) {
	var route models.Route
	if err := s.db.WithContext(ctx).First(&route, id).Error; err != nil {
		return nil, translate(err)
	}
	return &route, nil
}

func (s *GormStore) ActiveRoutes(ctx context.Context, excludeID uint) ([]models.Route, error) {
	var routes []models.Route
	q := s.db.WithContext(ctx).Where("status = ?", models.RouteStatusActive).Order("id")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&routes).Error; err != nil {
		return nil, translate(err)
	}
	return routes, nil
}

func (s *GormStore) CreateRoute(ctx context.Context, route *models.Route) error {
	return translate(s.db.WithContext(ctx).Create(route).Error)
}

func (s *GormStore) SaveRoute(ctx context.Context, route *models.Route) error {
	return translate(s.db.WithContext(ctx).Save(route).Error)
}

func (s *GormStore) DeleteRoute(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Route{}, id).Error)
}

func (s *GormStore) CityByID(ctx context.Context, id uint) (*models.City, error) {
	var city models.City
	if err := s.db.WithContext(ctx).First(&city, id).Error; err != nil {
		return nil, translate(err)
	}
	return &city, nil
}

func (s *GormStore) CustomerByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (s *GormStore) CustomersByIDs(ctx context.Context, ids []uint) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, translate(err)
	}
	return customers, nil
}

func (s *GormStore) DeleteCustomer(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Customer{}, id).Error)
}

func (s *GormStore) ActiveAssignments(ctx context.Context, routeID uint) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := s.db.WithContext(ctx).
		Where("route_id = ? AND status = ?", routeID, models.AssignmentStatusActive).
		Order("slot").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *GormStore) AssignmentsForRoute(ctx context.Context, routeID uint, lock bool) ([]models.Assignment, error) {
	q := s.db.WithContext(ctx).Where("route_id = ?", routeID).Order("slot")
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.Assignment
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *GormStore) AssignmentFor(ctx context.Context, routeID, customerID uint) (*models.Assignment, error) {
	var row models.Assignment
	err := s.db.WithContext(ctx).
		Where("route_id = ? AND customer_id = ?", routeID, customerID).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (s *GormStore) ActiveAssignmentsForCustomer(ctx context.Context, customerID uint) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, models.AssignmentStatusActive).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *GormStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *GormStore) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	return translate(s.db.WithContext(ctx).Save(a).Error)
}

func (s *GormStore) PurgeAssignments(ctx context.Context, routeID uint) error {
	// Hard delete: a reset clears history, and the (route_id, slot) unique
	// index must not keep ghost rows around.
	return translate(s.db.WithContext(ctx).
		Unscoped().
		Where("route_id = ?", routeID).
		Delete(&models.Assignment{}).Error)
}

// translate maps gorm and postgres driver errors onto the allocator's
// sentinels. Unique violations arrive either pre-translated by gorm
// (TranslateError) or as a raw pgconn error with SQLSTATE 23505.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return allocator.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return allocator.ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return allocator.ErrDuplicate
	}
	return err
}
