package models

import (
	"time"

	"gorm.io/gorm"
)

// TrackingToken grants a parent read access to one trip's live location
// stream, typically shared as a link. Tokens are opaque and expire.
type TrackingToken struct {
	gorm.Model
	Token     string    `json:"token" gorm:"uniqueIndex"`
	TripID    string    `json:"trip_id" gorm:"index"`
	StudentID uint      `json:"student_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
