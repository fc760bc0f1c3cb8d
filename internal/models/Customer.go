// internal/models/customer.go
package models

import (
	"gorm.io/gorm"
)

type Customer struct {
	gorm.Model
	CityID  uint   `json:"city_id" gorm:"index"`
	City    City   `gorm:"foreignKey:CityID" json:"-"`
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
