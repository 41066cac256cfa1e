package models

import (
	"gorm.io/gorm"
)

// Student is a learner enrolled on a bus route. PickupOrder is the per-route
// integer sequence defining the expected scan order; RFIDTag links the
// student's card to the check-in flow.
type Student struct {
	gorm.Model

	Name        string `json:"name" binding:"required"`
	AdmissionNo string `json:"admission_no" gorm:"uniqueIndex"`
	SchoolID    uint   `json:"school_id"`
	RouteID     uint   `json:"route_id" gorm:"index"`
	PickupOrder int    `json:"pickup_order"`
	RFIDTag     string `json:"rfid_tag" gorm:"index"`
	Active      bool   `json:"active" gorm:"default:true"`

	Address     string `json:"address"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone"`
	ParentID    uint   `json:"parent_id"` // User with role "parent"
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	PhotoURL    string `json:"photo_url"`
}
