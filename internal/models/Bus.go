// internal/models/bus.go
package models

import (
	"gorm.io/gorm"
)

type Bus struct {
	gorm.Model
	Registration string `json:"registration"`
	Capacity     int    `json:"capacity"`
	SchoolID     uint   `json:"school_id"`
	MinderID     uint   `json:"minder_id"`
	DriverName   string `json:"driver_name"`
	DriverPhone  string `json:"driver_phone"`
	InService    bool   `json:"in_service" gorm:"default:true"`
	RouteID      uint   `json:"route_id"`
}
