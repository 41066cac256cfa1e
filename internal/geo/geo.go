package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// earthRadius is the mean Earth radius in meters.
const earthRadius = 6371000

// DistanceMeters returns the haversine great-circle distance in meters
// between two (latitude, longitude) points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Bearing returns the initial bearing in degrees [0, 360) from point 1 to point 2.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLon := toRadians(lon2 - lon1)

	y := math.Sin(deltaLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)
	bearingDeg := toDegrees(math.Atan2(y, x))

	return math.Mod(bearingDeg+360, 360)
}

// PointInRing reports whether the point lies inside the polygon ring using the
// standard ray-casting parity test. Ring coordinates follow the go-geom
// convention of (longitude, latitude); the ring need not be explicitly closed.
// Points exactly on an edge are treated as outside.
func PointInRing(lat, lon float64, ring []geom.Coord) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i].X(), ring[i].Y()
		xj, yj := ring[j].X(), ring[j].Y()

		intersects := ((yi > lat) != (yj > lat)) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi
		if intersects {
			inside = !inside
		}
		j = i
	}
	return inside
}

// RingCentroid returns the vertex-average centroid of a polygon ring as
// (latitude, longitude). This is a deliberate approximation of the true
// polygon centroid; it is only used for rough distance hints, never for
// containment decisions.
func RingCentroid(ring []geom.Coord) (lat, lon float64) {
	if len(ring) == 0 {
		return 0, 0
	}
	for _, c := range ring {
		lon += c.X()
		lat += c.Y()
	}
	n := float64(len(ring))
	return lat / n, lon / n
}

// toRadians converts an angle from degrees to radians.
func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// toDegrees converts an angle from radians to degrees.
func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
