package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"shule_transit/internal/models"
	"shule_transit/internal/trip"
)

// RosterSource builds the active-trip roster: every active student enrolled
// on the route, carrying pickup order, tag and the profile fields the minder
// app displays.
type RosterSource struct {
	db *gorm.DB
}

func NewRosterSource(db *gorm.DB) *RosterSource {
	return &RosterSource{db: db}
}

func (r *RosterSource) RosterForRoute(ctx context.Context, routeID uint) ([]trip.ActiveTripStudent, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("route_id = ? AND active = ?", routeID, true).
		Order("pickup_order asc, id asc").
		Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("listing students for route %d: %w", routeID, err)
	}

	roster := make([]trip.ActiveTripStudent, 0, len(students))
	for _, s := range students {
		roster = append(roster, trip.ActiveTripStudent{
			ID:          s.ID,
			Name:        s.Name,
			AdmissionNo: s.AdmissionNo,
			Status:      trip.StudentPending,
			PickupOrder: s.PickupOrder,
			RFIDTag:     s.RFIDTag,
			Address:     s.Address,
			ParentName:  s.ParentName,
			ParentPhone: s.ParentPhone,
			Age:         s.Age,
			Gender:      s.Gender,
			PhotoURL:    s.PhotoURL,
		})
	}
	return roster, nil
}
