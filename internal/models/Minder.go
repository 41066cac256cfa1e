// internal/models/minder.go
package models

import (
	"gorm.io/gorm"
)

// Minder is the field operator who rides the bus and scans students on and
// off. Login credentials live on the associated User.
type Minder struct {
	gorm.Model
	UserID   uint   `json:"user_id" gorm:"unique"` // Foreign key to User
	BusID    uint   `json:"bus_id" gorm:"index"`
	User     User   `gorm:"foreignKey:UserID"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IDNumber string `json:"id_number"`
	SchoolID uint   `json:"school_id"`
	School   School `gorm:"foreignKey:SchoolID"`
}
