package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shule_transit/internal/models"
	"shule_transit/internal/stream"
	"shule_transit/internal/trip"
)

// ErrTokenInvalid covers unknown and expired tracking tokens.
var ErrTokenInvalid = errors.New("tracking token invalid or expired")

// snapshotHistoryLimit bounds the pull baseline; the live stream keeps its
// own cap afterwards.
const snapshotHistoryLimit = 50

// SnapshotSource serves the one-shot pull baseline for a tracking token:
// the trip's last known location, recent history and the tracked student's
// statuses.
type SnapshotSource struct {
	db        *gorm.DB
	lifecycle *trip.Lifecycle
}

func NewSnapshotSource(db *gorm.DB, lifecycle *trip.Lifecycle) *SnapshotSource {
	return &SnapshotSource{db: db, lifecycle: lifecycle}
}

func (s *SnapshotSource) FetchTripSnapshot(ctx context.Context, token string) (stream.Snapshot, error) {
	var tok models.TrackingToken
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return stream.Snapshot{}, ErrTokenInvalid
	}
	if err != nil {
		return stream.Snapshot{}, fmt.Errorf("resolving tracking token: %w", err)
	}
	if !tok.ExpiresAt.IsZero() && time.Now().After(tok.ExpiresAt) {
		return stream.Snapshot{}, ErrTokenInvalid
	}

	snap := stream.Snapshot{TripID: tok.TripID}

	var history []models.LocationHistory
	err = s.db.WithContext(ctx).
		Where("trip_id = ?", tok.TripID).
		Order("created_at desc").
		Limit(snapshotHistoryLimit).
		Find(&history).Error
	if err != nil {
		return stream.Snapshot{}, fmt.Errorf("loading location history: %w", err)
	}
	// Reverse to chronological order.
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		snap.History = append(snap.History, stream.TrackedLocation{
			SequenceID: uint64(h.ID),
			TripID:     h.TripID,
			Latitude:   h.Latitude,
			Longitude:  h.Longitude,
			Timestamp:  h.Timestamp,
		})
	}
	if n := len(snap.History); n > 0 {
		last := snap.History[n-1]
		snap.Current = &last
	}

	// Live trip state wins over persisted history when the trip is on this
	// process: fresher location plus the student's current statuses.
	if active, ok := s.lifecycle.Active(); ok && active.ID == tok.TripID {
		if active.CurrentLocation != nil {
			snap.Current = &stream.TrackedLocation{
				TripID:    active.ID,
				Latitude:  active.CurrentLocation.Latitude,
				Longitude: active.CurrentLocation.Longitude,
				Timestamp: active.CurrentLocation.Timestamp,
			}
		}
		for _, st := range active.Students {
			if st.ID == tok.StudentID {
				snap.StudentName = st.Name
				snap.PickupStatus, snap.DropoffStatus = studentStatuses(st.Status)
				break
			}
		}
	}

	return snap, nil
}

func studentStatuses(status trip.StudentStatus) (pickup, dropoff string) {
	switch status {
	case trip.StudentPickedUp:
		return "picked-up", "pending"
	case trip.StudentDroppedOff:
		return "picked-up", "dropped-off"
	default:
		return "pending", "pending"
	}
}
