package models

import (
	"gorm.io/gorm"
)

// BusRoute represents a service path a school bus runs each day.
// A school can have multiple routes; each route has enrolled students and
// assigned buses, and is anchored to the zone trips must start from.
type BusRoute struct {
	gorm.Model

	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	SchoolID    uint   `json:"school_id"`
	ZoneID      uint   `json:"zone_id"`

	// Associations
	Students []Student `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"students,omitempty"`
	Buses    []Bus     `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"buses,omitempty"`
}
