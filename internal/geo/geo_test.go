package geo

import (
	"math"
	"testing"

	"github.com/twpayne/go-geom"
)

// unitSquare is a 1-degree square with corners at (0,0) and (1,1),
// expressed as (lon, lat) coords.
func unitSquare() []geom.Coord {
	return []geom.Coord{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
}

func TestDistanceMetersZeroForSamePoint(t *testing.T) {
	if d := DistanceMeters(-1.2921, 36.8219, -1.2921, 36.8219); d != 0 {
		t.Errorf("distance between identical points = %v, want 0", d)
	}
}

func TestDistanceMetersSymmetry(t *testing.T) {
	// Nairobi CBD to Westlands, roughly.
	ab := DistanceMeters(-1.2921, 36.8219, -1.2673, 36.8060)
	ba := DistanceMeters(-1.2673, 36.8060, -1.2921, 36.8219)
	if ab != ba {
		t.Errorf("distance not symmetric: a->b=%v b->a=%v", ab, ba)
	}
	if ab < 2000 || ab > 5000 {
		t.Errorf("implausible CBD->Westlands distance: %v m", ab)
	}
}

func TestDistanceMetersOneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.2 km on a sphere of radius 6371 km.
	d := DistanceMeters(0, 0, 1, 0)
	if math.Abs(d-111195) > 100 {
		t.Errorf("one degree latitude = %v m, want ~111195", d)
	}
}

func TestPointInRing(t *testing.T) {
	square := unitSquare()

	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"center inside", 0.5, 0.5, true},
		{"far outside", 2, 2, false},
		{"outside negative", -0.5, -0.5, false},
		{"near corner inside", 0.01, 0.01, true},
		{"just outside east", 0.5, 1.01, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInRing(tt.lat, tt.lon, square); got != tt.want {
				t.Errorf("PointInRing(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestPointInRingConsistent(t *testing.T) {
	square := unitSquare()
	first := PointInRing(0.5, 0.5, square)
	for i := 0; i < 10; i++ {
		if PointInRing(0.5, 0.5, square) != first {
			t.Fatal("containment verdict changed between identical calls")
		}
	}
}

func TestPointInRingDegenerate(t *testing.T) {
	if PointInRing(0, 0, []geom.Coord{{0, 0}, {1, 1}}) {
		t.Error("two-vertex ring must never contain a point")
	}
	if PointInRing(0, 0, nil) {
		t.Error("nil ring must never contain a point")
	}
}

func TestRingCentroid(t *testing.T) {
	lat, lon := RingCentroid(unitSquare())
	if lat != 0.5 || lon != 0.5 {
		t.Errorf("centroid = (%v, %v), want (0.5, 0.5)", lat, lon)
	}
}

func TestBearingCardinal(t *testing.T) {
	if b := Bearing(0, 0, 1, 0); math.Abs(b-0) > 0.01 {
		t.Errorf("due north bearing = %v, want 0", b)
	}
	if b := Bearing(0, 0, 0, 1); math.Abs(b-90) > 0.01 {
		t.Errorf("due east bearing = %v, want 90", b)
	}
}
