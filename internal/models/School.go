// internal/models/school.go
package models

import (
	"gorm.io/gorm"
)

// School represents an institution whose students ride the transport fleet.
// A school operates buses on routes and owns the zones its trips start from.
type School struct {
	gorm.Model
	UserID uint `gorm:"uniqueIndex" json:"user_id"`

	Name    string `json:"name" binding:"required"`
	Email   string `gorm:"unique;not null" json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`

	Buses  []Bus      `gorm:"foreignKey:SchoolID" json:"buses,omitempty"`
	Routes []BusRoute `gorm:"foreignKey:SchoolID" json:"routes,omitempty"`
	Zones  []Zone     `gorm:"foreignKey:SchoolID" json:"zones,omitempty"`
}
