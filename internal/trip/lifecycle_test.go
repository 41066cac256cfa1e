package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"shule_transit/internal/geofence"
	"shule_transit/internal/store"
)

type fakeGeofence struct {
	within bool
	err    error
}

func (f *fakeGeofence) CheckGeofence(ctx context.Context, zoneID uint) (geofence.Result, error) {
	if f.err != nil {
		return geofence.Result{}, f.err
	}
	d := 120.0
	return geofence.Result{IsWithinGeofence: f.within, Distance: &d}, nil
}

type fakeRoster struct {
	students []ActiveTripStudent
	err      error
}

func (f *fakeRoster) RosterForRoute(ctx context.Context, routeID uint) ([]ActiveTripStudent, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ActiveTripStudent, len(f.students))
	copy(out, f.students)
	return out, nil
}

func routeStudents() []ActiveTripStudent {
	return []ActiveTripStudent{
		{ID: 2, Name: "Brian Otieno", AdmissionNo: "ADM-002", PickupOrder: 2, RFIDTag: "TAG-2"},
		{ID: 1, Name: "Amina Yusuf", AdmissionNo: "ADM-001", PickupOrder: 1, RFIDTag: "TAG-1"},
		{ID: 3, Name: "Chep Kirui", AdmissionNo: "ADM-003", PickupOrder: 3, RFIDTag: "TAG-3"},
	}
}

func newTestLifecycle(t *testing.T) *Lifecycle {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewLifecycle(st, &fakeGeofence{within: true}, &fakeRoster{students: routeStudents()}, nil)
}

func startRequest() StartRequest {
	lat, lon := 0.5, 0.5
	return StartRequest{
		BusID:           7,
		BusRegistration: "KDA 123X",
		MinderID:        4,
		RouteID:         1,
		ZoneID:          1,
		InitialLat:      &lat,
		InitialLon:      &lon,
	}
}

func TestStartTripBuildsSortedRoster(t *testing.T) {
	l := newTestLifecycle(t)

	tr, err := l.StartTrip(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	if tr.Status != StatusActive {
		t.Errorf("status = %v, want active", tr.Status)
	}
	if len(tr.Students) != 3 {
		t.Fatalf("roster size = %d, want 3", len(tr.Students))
	}
	for i, want := range []uint{1, 2, 3} {
		if tr.Students[i].ID != want {
			t.Errorf("roster[%d].ID = %d, want %d (pickup order)", i, tr.Students[i].ID, want)
		}
		if tr.Students[i].Status != StudentPending {
			t.Errorf("roster[%d] status = %v, want pending", i, tr.Students[i].Status)
		}
	}
	if tr.CurrentLocation == nil || tr.CurrentLocation.Latitude != 0.5 {
		t.Error("initial location not recorded")
	}
}

func TestStartTripSingleActiveInvariant(t *testing.T) {
	l := newTestLifecycle(t)

	first, err := l.StartTrip(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("first StartTrip: %v", err)
	}

	_, err = l.StartTrip(context.Background(), startRequest())
	if !errors.Is(err, ErrTripAlreadyActive) {
		t.Fatalf("second StartTrip err = %v, want ErrTripAlreadyActive", err)
	}

	current, ok := l.Active()
	if !ok || current.ID != first.ID {
		t.Error("existing trip was modified by the rejected start")
	}
}

func TestStartTripOutsideZone(t *testing.T) {
	st, _ := store.NewFileStore(t.TempDir())
	l := NewLifecycle(st, &fakeGeofence{within: false}, &fakeRoster{students: routeStudents()}, nil)

	_, err := l.StartTrip(context.Background(), startRequest())
	if !errors.Is(err, ErrOutsideZone) {
		t.Fatalf("err = %v, want ErrOutsideZone", err)
	}
	if _, ok := l.Active(); ok {
		t.Error("no trip should exist after a failed start")
	}
}

func TestStartTripGeofenceUnavailable(t *testing.T) {
	st, _ := store.NewFileStore(t.TempDir())
	l := NewLifecycle(st, &fakeGeofence{err: geofence.ErrLocationUnavailable}, &fakeRoster{students: routeStudents()}, nil)

	_, err := l.StartTrip(context.Background(), startRequest())
	if !errors.Is(err, geofence.ErrLocationUnavailable) {
		t.Fatalf("err = %v, want ErrLocationUnavailable", err)
	}
}

func TestUpdateStudentStatusMonotonic(t *testing.T) {
	l := newTestLifecycle(t)
	if _, err := l.StartTrip(context.Background(), startRequest()); err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	if err := l.UpdateStudentStatus(1, StudentPickedUp, nil); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if err := l.UpdateStudentStatus(1, StudentDroppedOff, nil); err != nil {
		t.Fatalf("dropoff: %v", err)
	}

	// Backward transition must be rejected and change nothing.
	err := l.UpdateStudentStatus(1, StudentPickedUp, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("regression err = %v, want ErrInvalidTransition", err)
	}
	tr, _ := l.Active()
	if tr.Students[0].Status != StudentDroppedOff {
		t.Errorf("status regressed to %v", tr.Students[0].Status)
	}
}

func TestUpdateStudentStatusIdempotent(t *testing.T) {
	l := newTestLifecycle(t)
	if _, err := l.StartTrip(context.Background(), startRequest()); err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	if err := l.UpdateStudentStatus(1, StudentPickedUp, nil); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	tr, _ := l.Active()
	firstTime := tr.Students[0].PickupTime
	if firstTime == nil {
		t.Fatal("pickup time not set")
	}

	time.Sleep(5 * time.Millisecond)
	if err := l.UpdateStudentStatus(1, StudentPickedUp, nil); err != nil {
		t.Fatalf("re-applied pickup: %v", err)
	}
	tr, _ = l.Active()
	if !tr.Students[0].PickupTime.Equal(*firstTime) {
		t.Errorf("pickup time changed on re-delivery: %v -> %v", firstTime, tr.Students[0].PickupTime)
	}
}

func TestUpdateStudentStatusUnknownStudent(t *testing.T) {
	l := newTestLifecycle(t)
	if _, err := l.StartTrip(context.Background(), startRequest()); err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	err := l.UpdateStudentStatus(99, StudentPickedUp, nil)
	if !errors.Is(err, ErrUnknownStudent) {
		t.Fatalf("err = %v, want ErrUnknownStudent", err)
	}
	// Other students untouched.
	tr, _ := l.Active()
	for _, s := range tr.Students {
		if s.Status != StudentPending {
			t.Errorf("student %d corrupted by unknown-student update", s.ID)
		}
	}
}

func TestStatsInvariant(t *testing.T) {
	l := newTestLifecycle(t)

	// All-zero when idle.
	if s := l.Stats(); s != (Stats{}) {
		t.Errorf("idle stats = %+v, want zero", s)
	}

	if _, err := l.StartTrip(context.Background(), startRequest()); err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	check := func() {
		s := l.Stats()
		if s.PickedUp+s.Remaining != s.TotalStudents {
			t.Errorf("invariant broken: %d + %d != %d", s.PickedUp, s.Remaining, s.TotalStudents)
		}
	}
	check()
	l.UpdateStudentStatus(1, StudentPickedUp, nil)
	check()
	l.UpdateStudentStatus(1, StudentDroppedOff, nil)
	l.UpdateStudentStatus(2, StudentPickedUp, nil)
	check()

	s := l.Stats()
	// Dropped-off still counts as picked up.
	if s.PickedUp != 2 || s.Remaining != 1 {
		t.Errorf("stats = %+v, want 2 picked up, 1 remaining", s)
	}
}

func TestComputeStatsEmptyRoster(t *testing.T) {
	s := ComputeStats(nil)
	if s.CompletionPercent != 0 || s.TotalStudents != 0 {
		t.Errorf("empty roster stats = %+v, want zero", s)
	}
}

func TestEndTrip(t *testing.T) {
	l := newTestLifecycle(t)

	if _, err := l.EndTrip(context.Background()); !errors.Is(err, ErrNoActiveTrip) {
		t.Fatalf("EndTrip with no trip: err = %v, want ErrNoActiveTrip", err)
	}

	if _, err := l.StartTrip(context.Background(), startRequest()); err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	completed, err := l.EndTrip(context.Background())
	if err != nil {
		t.Fatalf("EndTrip: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Errorf("status = %v, want completed", completed.Status)
	}
	if completed.ActualDuration < 0 {
		t.Errorf("negative duration %v", completed.ActualDuration)
	}
	if _, ok := l.Active(); ok {
		t.Error("trip still active after EndTrip")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, _ := store.NewFileStore(dir)
	l := NewLifecycle(st, &fakeGeofence{within: true}, &fakeRoster{students: routeStudents()}, nil)

	started, err := l.StartTrip(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	if err := l.UpdateStudentStatus(1, StudentPickedUp, &Location{Latitude: 0.5, Longitude: 0.5, Timestamp: time.Now()}); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	before, _ := l.Active()

	// A new lifecycle over the same store models a process restart.
	st2, _ := store.NewFileStore(dir)
	restored := NewLifecycle(st2, &fakeGeofence{within: true}, &fakeRoster{}, nil)
	after, ok := restored.Active()
	if !ok {
		t.Fatal("trip not restored after restart")
	}
	if after.ID != started.ID {
		t.Errorf("restored trip id = %q, want %q", after.ID, started.ID)
	}
	if after.Students[0].PickupTime == nil {
		t.Fatal("pickup time lost in round-trip")
	}
	diff := after.Students[0].PickupTime.Sub(*before.Students[0].PickupTime)
	if diff > time.Second || diff < -time.Second {
		t.Errorf("pickup time drifted %v across round-trip", diff)
	}
	if !after.StartTime.Truncate(time.Second).Equal(started.StartTime.Truncate(time.Second)) {
		t.Errorf("start time drifted: %v vs %v", after.StartTime, started.StartTime)
	}
}

func TestRestoreDiscardsCorruptState(t *testing.T) {
	dir := t.TempDir()
	st, _ := store.NewFileStore(dir)
	if err := st.Save(StoreKey, []byte("{not json")); err != nil {
		t.Fatalf("seeding corrupt state: %v", err)
	}

	l := NewLifecycle(st, &fakeGeofence{within: true}, &fakeRoster{students: routeStudents()}, nil)
	if _, ok := l.Active(); ok {
		t.Fatal("corrupt state must not produce an active trip")
	}
	// The slot is free again: a fresh start must succeed.
	if _, err := l.StartTrip(context.Background(), startRequest()); err != nil {
		t.Fatalf("StartTrip after corrupt restore: %v", err)
	}
}

func TestUpdateLocation(t *testing.T) {
	l := newTestLifecycle(t)

	// No-op without a trip.
	l.UpdateLocation(-1.29, 36.82)

	if _, err := l.StartTrip(context.Background(), startRequest()); err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	l.UpdateLocation(-1.29, 36.82)
	tr, _ := l.Active()
	if tr.CurrentLocation == nil || tr.CurrentLocation.Latitude != -1.29 {
		t.Errorf("current location = %+v, want lat -1.29", tr.CurrentLocation)
	}
	if tr.CurrentLocation.Timestamp.IsZero() {
		t.Error("location update missing timestamp")
	}
}
