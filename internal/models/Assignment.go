package models

import (
	"gorm.io/gorm"
)

const (
	AssignmentStatusActive   = "active"
	AssignmentStatusInactive = "inactive"
)

// Assignment binds one customer to one route at one slot.
//
// The (route_id, slot) index is unique across ALL rows, active or not,
// while the allocator only treats active rows as occupied. An inactive
// row can therefore still collide at commit time with a slot the
// allocator computed as free; the single-slot path retries on exactly
// that conflict.
type Assignment struct {
	gorm.Model

	RouteID    uint     `json:"route_id" gorm:"uniqueIndex:uniq_route_slot;uniqueIndex:uniq_route_customer"`
	Route      Route    `gorm:"foreignKey:RouteID" json:"-"`
	CustomerID uint     `json:"customer_id" gorm:"uniqueIndex:uniq_route_customer"`
	Customer   Customer `gorm:"foreignKey:CustomerID" json:"-"`

	Slot   int    `json:"slot" gorm:"uniqueIndex:uniq_route_slot"`
	Status string `json:"status" gorm:"default:active"`
}

// IsActive reports whether the assignment currently occupies its slot.
func (a *Assignment) IsActive() bool {
	return a.Status == AssignmentStatusActive
}
