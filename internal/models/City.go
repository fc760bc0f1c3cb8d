// internal/models/city.go
package models

import (
	"gorm.io/gorm"
)

// City groups routes and customers under one operating area.
// Route intervals are checked for overlap globally, not per city.
type City struct {
	gorm.Model

	Name   string `json:"name" gorm:"unique" binding:"required"`
	Region string `json:"region"`

	Routes    []Route    `gorm:"foreignKey:CityID" json:"routes,omitempty"`
	Customers []Customer `gorm:"foreignKey:CityID" json:"customers,omitempty"`
}
