package trip_test

import (
	"context"
	"testing"
	"time"

	"github.com/twpayne/go-geom"

	"shule_transit/internal/checkin"
	"shule_transit/internal/geofence"
	"shule_transit/internal/store"
	"shule_transit/internal/trip"
)

// End-to-end: geofence gate, trip start, tag scan, stats. Exercises the real
// verifier and matcher against fakes only at the hardware/backend edges.

type deviceAt struct{ lat, lon float64 }

func (d deviceAt) Sample(ctx context.Context) (geofence.Sample, error) {
	return geofence.Sample{Latitude: d.lat, Longitude: d.lon, Timestamp: time.Now()}, nil
}

type oneZone struct{ zone geofence.Zone }

func (o oneZone) ZoneByID(ctx context.Context, zoneID uint) (geofence.Zone, error) {
	if zoneID != o.zone.ID {
		return geofence.Zone{}, geofence.ErrZoneNotFound
	}
	return o.zone, nil
}

type tagTable map[string]*checkin.StudentRef

func (t tagTable) LookupStudentByTag(ctx context.Context, tagID string) (*checkin.StudentRef, error) {
	return t[tagID], nil
}

type fixedRoster []trip.ActiveTripStudent

func (f fixedRoster) RosterForRoute(ctx context.Context, routeID uint) ([]trip.ActiveTripStudent, error) {
	out := make([]trip.ActiveTripStudent, len(f))
	copy(out, f)
	return out, nil
}

func TestMorningRunScenario(t *testing.T) {
	ctx := context.Background()

	verifier := geofence.NewVerifier(
		deviceAt{lat: 0.5, lon: 0.5},
		oneZone{zone: geofence.Zone{
			ID:   1,
			Name: "School gate",
			Ring: []geom.Coord{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
		}},
	)

	res, err := verifier.CheckGeofence(ctx, 1)
	if err != nil {
		t.Fatalf("CheckGeofence: %v", err)
	}
	if !res.IsWithinGeofence {
		t.Fatal("device at (0.5,0.5) must be within the square zone")
	}

	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	roster := fixedRoster{
		{ID: 1, Name: "Amina Yusuf", PickupOrder: 1, RFIDTag: "TAG-1"},
		{ID: 2, Name: "Brian Otieno", PickupOrder: 2, RFIDTag: "TAG-2"},
	}
	lifecycle := trip.NewLifecycle(st, verifier, roster, nil)

	started, err := lifecycle.StartTrip(ctx, trip.StartRequest{
		BusID: 7, BusRegistration: "KDA 123X", MinderID: 4, RouteID: 1, ZoneID: 1,
	})
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	if started.Students[0].ID != 1 || started.Students[1].ID != 2 {
		t.Fatal("roster not sorted by pickup order")
	}

	matcher := checkin.NewMatcher(tagTable{
		"TAG-1": {ID: 1, Name: "Amina Yusuf"},
		"TAG-2": {ID: 2, Name: "Brian Otieno"},
	}, nil)

	current, _ := lifecycle.Active()
	ev := matcher.Process(ctx, "TAG-1", checkin.DirectionEntry, current.Students)
	if ev.Outcome != checkin.OutcomeAccepted {
		t.Fatalf("scan outcome = %v (%s), want accepted", ev.Outcome, ev.Message)
	}
	if ev.Direction != checkin.DirectionEntry {
		t.Errorf("direction = %v, want entry", ev.Direction)
	}

	if err := lifecycle.ApplyCheckIn(ev.StudentID, ev.Direction.TargetStatus(), -1.2833, 36.8167, ev.Timestamp); err != nil {
		t.Fatalf("applying accepted scan: %v", err)
	}

	after, _ := lifecycle.Active()
	if after.Students[0].PickupPoint == nil || after.Students[0].PickupPoint.Latitude != -1.2833 {
		t.Errorf("pickup point = %+v, want scan coordinates", after.Students[0].PickupPoint)
	}

	stats := lifecycle.Stats()
	if stats.PickedUp != 1 || stats.Remaining != 1 || stats.TotalStudents != 2 {
		t.Errorf("stats = %+v, want 1 picked up of 2", stats)
	}
	if stats.CompletionPercent != 50 {
		t.Errorf("completion = %v, want 50", stats.CompletionPercent)
	}
}
