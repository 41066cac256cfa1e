package geofence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/twpayne/go-geom"
)

type fakeSource struct {
	sample Sample
	err    error
	calls  int
}

func (f *fakeSource) Sample(ctx context.Context) (Sample, error) {
	f.calls++
	if f.err != nil {
		return Sample{}, f.err
	}
	return f.sample, nil
}

type fakeZones struct {
	zones map[uint]Zone
}

func (f *fakeZones) ZoneByID(ctx context.Context, zoneID uint) (Zone, error) {
	z, ok := f.zones[zoneID]
	if !ok {
		return Zone{}, ErrZoneNotFound
	}
	return z, nil
}

func squareZone() Zone {
	return Zone{
		ID:   1,
		Name: "Depot",
		Ring: []geom.Coord{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
	}
}

func newTestVerifier(src *fakeSource, z Zone) *Verifier {
	return NewVerifier(src, &fakeZones{zones: map[uint]Zone{z.ID: z}})
}

func TestCheckGeofenceInside(t *testing.T) {
	src := &fakeSource{sample: Sample{Latitude: 0.5, Longitude: 0.5, Timestamp: time.Now()}}
	v := newTestVerifier(src, squareZone())

	res, err := v.CheckGeofence(context.Background(), 1)
	if err != nil {
		t.Fatalf("CheckGeofence: %v", err)
	}
	if !res.IsWithinGeofence {
		t.Error("point (0.5,0.5) should be inside the unit square zone")
	}
	if res.Distance == nil {
		t.Error("expected centroid distance to be reported")
	} else if *res.Distance > 100 {
		t.Errorf("distance to centroid = %v m, want ~0", *res.Distance)
	}
}

func TestCheckGeofenceOutside(t *testing.T) {
	src := &fakeSource{sample: Sample{Latitude: 2, Longitude: 2, Timestamp: time.Now()}}
	v := newTestVerifier(src, squareZone())

	res, err := v.CheckGeofence(context.Background(), 1)
	if err != nil {
		t.Fatalf("CheckGeofence: %v", err)
	}
	if res.IsWithinGeofence {
		t.Error("point (2,2) should be outside the unit square zone")
	}
}

func TestCheckGeofenceZoneNotFound(t *testing.T) {
	src := &fakeSource{sample: Sample{Latitude: 0.5, Longitude: 0.5, Timestamp: time.Now()}}
	v := newTestVerifier(src, squareZone())

	_, err := v.CheckGeofence(context.Background(), 99)
	if !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("err = %v, want ErrZoneNotFound", err)
	}
}

func TestCheckGeofenceLocationUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("permission denied")}
	v := newTestVerifier(src, squareZone())

	_, err := v.CheckGeofence(context.Background(), 1)
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Errorf("err = %v, want ErrLocationUnavailable", err)
	}
}

func TestCheckGeofenceStaleSampleRejected(t *testing.T) {
	src := &fakeSource{sample: Sample{Latitude: 0.5, Longitude: 0.5, Timestamp: time.Now().Add(-5 * time.Minute)}}
	v := newTestVerifier(src, squareZone())

	_, err := v.CheckGeofence(context.Background(), 1)
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Errorf("stale sample: err = %v, want ErrLocationUnavailable", err)
	}
}

func TestCheckGeofenceRadiusFallback(t *testing.T) {
	zone := Zone{ID: 2, Name: "Gate", Center: geom.Coord{36.8219, -1.2921}, RadiusMeters: 200}
	src := &fakeSource{sample: Sample{Latitude: -1.2921, Longitude: 36.8219, Timestamp: time.Now()}}
	v := NewVerifier(src, &fakeZones{zones: map[uint]Zone{2: zone}})

	res, err := v.CheckGeofence(context.Background(), 2)
	if err != nil {
		t.Fatalf("CheckGeofence: %v", err)
	}
	if !res.IsWithinGeofence {
		t.Error("device at the zone center should be within the radius fallback")
	}
}

func TestRequestLocationPermission(t *testing.T) {
	ok := newTestVerifier(&fakeSource{sample: Sample{Timestamp: time.Now()}}, squareZone())
	if !ok.RequestLocationPermission(context.Background()) {
		t.Error("working source: want true")
	}

	denied := newTestVerifier(&fakeSource{err: errors.New("denied")}, squareZone())
	if denied.RequestLocationPermission(context.Background()) {
		t.Error("failing source: want false")
	}
}
