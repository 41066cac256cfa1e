package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckInRecord is the persisted form of one scan resolution. Written
// fire-and-forget; the roster transition has already been applied locally by
// the time this row lands.
type CheckInRecord struct {
	gorm.Model
	TripID      string    `json:"trip_id" gorm:"index"`
	TagID       string    `json:"tag_id"`
	StudentID   uint      `json:"student_id" gorm:"index"`
	Direction   string    `json:"direction"` // "entry" or "exit"
	Outcome     string    `json:"outcome"`   // "accepted", "wrong-student", "unrecognized"
	Message     string    `json:"message"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	ManualEntry bool      `json:"manual_entry"`
	ScannedAt   time.Time `json:"scanned_at"`
}
