package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	logrus "github.com/sirupsen/logrus"

	"shule_transit/internal/geofence"
	"shule_transit/internal/metrics"
	"shule_transit/internal/store"
)

var (
	ErrTripAlreadyActive = errors.New("a trip is already active")
	ErrNoActiveTrip      = errors.New("no active trip")
	ErrOutsideZone       = errors.New("device is outside the permitted zone")
	ErrUnknownStudent    = errors.New("student not on the trip roster")
	ErrInvalidTransition = errors.New("student status cannot move backwards")
)

// StoreKey is the durable-store key holding the serialized active trip.
const StoreKey = "active_trip"

// GeofenceChecker gates trip starts on physical presence in the zone.
type GeofenceChecker interface {
	CheckGeofence(ctx context.Context, zoneID uint) (geofence.Result, error)
}

// RosterSource builds the roster of active students assigned to a route,
// one entry per student, each already carrying its pickup order and tag.
type RosterSource interface {
	RosterForRoute(ctx context.Context, routeID uint) ([]ActiveTripStudent, error)
}

// StartRequest carries everything a minder's start action provides. The
// initial location is optional; the device sends it when it has a fix.
type StartRequest struct {
	BusID           uint     `json:"bus_id"`
	BusRegistration string   `json:"bus_registration"`
	MinderID        uint     `json:"minder_id"`
	RouteID         uint     `json:"route_id"`
	ZoneID          uint     `json:"zone_id"`
	EstimatedMins   int      `json:"estimated_mins"`
	InitialLat      *float64 `json:"initial_lat,omitempty"`
	InitialLon      *float64 `json:"initial_lon,omitempty"`
}

// Lifecycle owns the single in-progress trip. All mutation goes through its
// methods; everything else sees snapshot copies. The trip is written to the
// durable store on every mutation and restored on construction, so a process
// restart mid-trip resumes where it left off.
type Lifecycle struct {
	mu       sync.Mutex
	active   *ActiveTrip
	store    store.Store
	geofence GeofenceChecker
	roster   RosterSource
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewLifecycle(st store.Store, gf GeofenceChecker, roster RosterSource, m *metrics.Collector) *Lifecycle {
	l := &Lifecycle{
		store:    st,
		geofence: gf,
		roster:   roster,
		metrics:  m,
		now:      time.Now,
	}
	l.restore()
	return l
}

// restore loads a previously persisted trip. Corrupt stored state is data
// loss, not a crash: it is discarded and the lifecycle starts with no trip.
func (l *Lifecycle) restore() {
	if l.store == nil {
		return
	}
	data, err := l.store.Load(StoreKey)
	if err != nil {
		logrus.WithError(err).Warn("Could not read persisted trip, starting clean.")
		return
	}
	if data == nil {
		return
	}

	var t ActiveTrip
	if err := json.Unmarshal(data, &t); err != nil || t.ID == "" {
		logrus.WithError(err).Warn("Persisted trip is corrupt, discarding.")
		l.store.Clear(StoreKey)
		return
	}

	l.active = &t
	if l.metrics != nil {
		l.metrics.TripActive.Set(1)
	}
	logrus.WithFields(logrus.Fields{
		"trip_id":  t.ID,
		"students": len(t.Students),
		"started":  t.StartTime.Format(time.RFC3339),
	}).Info("Restored in-progress trip from local store.")
}

// StartTrip verifies geofence containment, builds the roster for the route
// sorted by pickup order, and activates the trip. It fails with
// ErrTripAlreadyActive when a trip is in flight and ErrOutsideZone when the
// device is not inside the zone; the existing trip is never touched on
// failure.
func (l *Lifecycle) StartTrip(ctx context.Context, req StartRequest) (ActiveTrip, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return ActiveTrip{}, ErrTripAlreadyActive
	}

	res, err := l.geofence.CheckGeofence(ctx, req.ZoneID)
	if err != nil {
		return ActiveTrip{}, fmt.Errorf("geofence check: %w", err)
	}
	if !res.IsWithinGeofence {
		if res.Distance != nil {
			return ActiveTrip{}, fmt.Errorf("%w (about %.0f m from zone center)", ErrOutsideZone, *res.Distance)
		}
		return ActiveTrip{}, ErrOutsideZone
	}

	students, err := l.roster.RosterForRoute(ctx, req.RouteID)
	if err != nil {
		return ActiveTrip{}, fmt.Errorf("building roster for route %d: %w", req.RouteID, err)
	}
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].PickupOrder != students[j].PickupOrder {
			return students[i].PickupOrder < students[j].PickupOrder
		}
		return students[i].ID < students[j].ID
	})
	for i := range students {
		students[i].Status = StudentPending
		students[i].PickupTime = nil
		students[i].DropoffTime = nil
	}

	now := l.now()
	t := &ActiveTrip{
		ID:              fmt.Sprintf("TRIP-%s-%d", now.Format("20060102-150405"), req.BusID),
		BusID:           req.BusID,
		BusRegistration: req.BusRegistration,
		MinderID:        req.MinderID,
		RouteID:         req.RouteID,
		ZoneID:          req.ZoneID,
		StartTime:       now,
		Status:          StatusActive,
		Students:        students,
		EstimatedMins:   req.EstimatedMins,
	}
	if req.InitialLat != nil && req.InitialLon != nil {
		t.CurrentLocation = &Location{
			Latitude:  *req.InitialLat,
			Longitude: *req.InitialLon,
			Timestamp: now,
		}
	}

	l.active = t
	l.persistLocked()
	if l.metrics != nil {
		l.metrics.TripsStarted.Inc()
		l.metrics.TripActive.Set(1)
	}
	logrus.WithFields(logrus.Fields{
		"trip_id":  t.ID,
		"route_id": req.RouteID,
		"bus":      req.BusRegistration,
		"students": len(students),
	}).Info("Trip started.")
	return l.snapshotLocked(), nil
}

// EndTrip completes and clears the active trip. The completed trip is
// returned for archival by the caller; the lifecycle itself holds nothing
// afterwards.
func (l *Lifecycle) EndTrip(ctx context.Context) (ActiveTrip, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return ActiveTrip{}, ErrNoActiveTrip
	}

	l.active.Status = StatusCompleted
	l.active.ActualDuration = l.now().Sub(l.active.StartTime)
	completed := l.snapshotLocked()

	l.active = nil
	if l.store != nil {
		if err := l.store.Clear(StoreKey); err != nil {
			logrus.WithError(err).Warn("Could not clear persisted trip.")
		}
	}
	if l.metrics != nil {
		l.metrics.TripsCompleted.Inc()
		l.metrics.TripActive.Set(0)
		l.metrics.TripDuration.Observe(completed.ActualDuration.Seconds())
	}
	logrus.WithFields(logrus.Fields{
		"trip_id":  completed.ID,
		"duration": completed.ActualDuration.String(),
	}).Info("Trip ended.")
	return completed, nil
}

// UpdateStudentStatus applies one forward status transition. Repeating an
// already-applied transition is a no-op that keeps the original timestamp;
// a backward transition fails with ErrInvalidTransition and changes nothing.
func (l *Lifecycle) UpdateStudentStatus(studentID uint, newStatus StudentStatus, loc *Location) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return ErrNoActiveTrip
	}

	var student *ActiveTripStudent
	for i := range l.active.Students {
		if l.active.Students[i].ID == studentID {
			student = &l.active.Students[i]
			break
		}
	}
	if student == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownStudent, studentID)
	}

	if !student.Status.CanAdvanceTo(newStatus) {
		return fmt.Errorf("%w: %s -> %s for student %d", ErrInvalidTransition, student.Status, newStatus, studentID)
	}
	if student.Status == newStatus {
		// Re-delivered event; already applied.
		return nil
	}

	now := l.now()
	student.Status = newStatus
	switch newStatus {
	case StudentPickedUp:
		if student.PickupTime == nil {
			ts := now
			student.PickupTime = &ts
			student.PickupPoint = loc
		}
	case StudentDroppedOff:
		if student.DropoffTime == nil {
			ts := now
			student.DropoffTime = &ts
			student.DropoffPoint = loc
		}
	}

	l.persistLocked()
	logrus.WithFields(logrus.Fields{
		"trip_id":    l.active.ID,
		"student_id": studentID,
		"status":     newStatus,
	}).Info("Student status updated.")
	return nil
}

// ApplyCheckIn applies an accepted scan: the student moves to the status the
// scan direction targets, stamped with the scan's coordinates when present.
// Identical to a manual status override except for where the event came from.
func (l *Lifecycle) ApplyCheckIn(studentID uint, target StudentStatus, lat, lon float64, at time.Time) error {
	var loc *Location
	if lat != 0 || lon != 0 {
		loc = &Location{Latitude: lat, Longitude: lon, Timestamp: at}
	}
	return l.UpdateStudentStatus(studentID, target, loc)
}

// UpdateLocation replaces the trip's current location with a fresh
// timestamped sample. It is a no-op when no trip is active.
func (l *Lifecycle) UpdateLocation(lat, lon float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return
	}
	l.active.CurrentLocation = &Location{
		Latitude:  lat,
		Longitude: lon,
		Timestamp: l.now(),
	}
	l.persistLocked()
}

// Stats derives aggregate progress. All-zero when no trip is active.
func (l *Lifecycle) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return Stats{}
	}
	return ComputeStats(l.active.Students)
}

// Active returns a snapshot of the in-progress trip, if any. The copy is
// safe to read without holding any lock; mutating it has no effect.
func (l *Lifecycle) Active() (ActiveTrip, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return ActiveTrip{}, false
	}
	return l.snapshotLocked(), true
}

func (l *Lifecycle) snapshotLocked() ActiveTrip {
	t := *l.active
	t.Students = make([]ActiveTripStudent, len(l.active.Students))
	copy(t.Students, l.active.Students)
	if l.active.CurrentLocation != nil {
		loc := *l.active.CurrentLocation
		t.CurrentLocation = &loc
	}
	return t
}

// persistLocked serializes the active trip to the durable store. A write
// failure is logged but does not fail the mutation already applied in
// memory; the store is a local cache, not a system of record.
func (l *Lifecycle) persistLocked() {
	if l.store == nil || l.active == nil {
		return
	}
	data, err := json.Marshal(l.active)
	if err != nil {
		logrus.WithError(err).Error("Could not serialize active trip.")
		return
	}
	if err := l.store.Save(StoreKey, data); err != nil {
		logrus.WithError(err).Error("Could not persist active trip.")
	}
}
