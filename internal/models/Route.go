package models

import (
	"gorm.io/gorm"
)

const (
	RouteStatusActive   = "active"
	RouteStatusInactive = "inactive"
)

// Route represents a delivery zone owned by a city. Each route owns the
// closed slot interval [RangeMin, RangeMax]; customers assigned to the
// route each occupy one slot inside it.
//
// Invariant: among routes with Status = active, no two intervals may
// intersect, regardless of which city owns them.
type Route struct {
	gorm.Model

	CityID uint   `json:"city_id"`
	City   City   `gorm:"foreignKey:CityID" json:"-"`
	Name   string `json:"name" binding:"required"`

	RangeMin int    `json:"range_min"`
	RangeMax int    `json:"range_max"`
	Status   string `json:"status" gorm:"default:active"`

	// Geometry stored in PostGIS as a POLYGON (SRID 4326).
	// When creating, provide GeoJSON; migrations define the column type appropriately.
	Boundary []byte `gorm:"type:bytea" json:"-"`

	Assignments []Assignment `gorm:"foreignKey:RouteID" json:"assignments,omitempty"`
}

// Capacity is the number of slots the route's interval holds.
func (r *Route) Capacity() int {
	if r.RangeMax < r.RangeMin {
		return 0
	}
	return r.RangeMax - r.RangeMin + 1
}

// IsActive reports whether the route participates in the overlap invariant.
func (r *Route) IsActive() bool {
	return r.Status == RouteStatusActive
}
