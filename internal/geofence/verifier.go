package geofence

import (
	"context"
	"errors"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"shule_transit/internal/geo"
)

var (
	// ErrLocationUnavailable means the device could not produce a usable
	// location sample: permission denied, timeout, or no hardware.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrZoneNotFound means the zone id did not resolve to reference data.
	ErrZoneNotFound = errors.New("zone not found")
)

// Sample is one device location fix. Never mutated after creation.
type Sample struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters
	Heading   *float64 // degrees
	Speed     *float64 // m/s
	Timestamp time.Time
}

// Result is the containment verdict for one check. Distance is measured to
// the zone's vertex-average centroid and is informational only; it never
// feeds the containment decision.
type Result struct {
	IsWithinGeofence bool     `json:"is_within_geofence"`
	Distance         *float64 `json:"distance,omitempty"`
	Accuracy         *float64 `json:"accuracy,omitempty"`
}

// Zone is resolved reference data for one permitted boundary. Ring follows
// the go-geom (longitude, latitude) convention. When the ring has fewer than
// three vertices, RadiusMeters around Center is the fallback boundary.
type Zone struct {
	ID           uint
	Name         string
	Ring         []geom.Coord
	Center       geom.Coord
	RadiusMeters float64
}

// LocationSource produces one location sample per call. Implementations may
// serve a cached fix; the verifier rejects fixes older than its max age.
type LocationSource interface {
	Sample(ctx context.Context) (Sample, error)
}

// ZoneStore resolves zone reference data by id.
type ZoneStore interface {
	ZoneByID(ctx context.Context, zoneID uint) (Zone, error)
}

// Verifier decides whether the device is physically inside a permitted zone
// before a trip may start. Retries are caller-driven, never automatic.
type Verifier struct {
	source  LocationSource
	zones   ZoneStore
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time
}

const (
	defaultTimeout = 10 * time.Second
	defaultMaxAge  = 60 * time.Second
)

func NewVerifier(source LocationSource, zones ZoneStore) *Verifier {
	return &Verifier{
		source:  source,
		zones:   zones,
		timeout: defaultTimeout,
		maxAge:  defaultMaxAge,
		now:     time.Now,
	}
}

// CheckGeofence obtains a single location sample, resolves the zone and
// evaluates containment. It fails with ErrLocationUnavailable when no fresh
// sample can be produced within the timeout and ErrZoneNotFound when the zone
// id does not resolve.
func (v *Verifier) CheckGeofence(ctx context.Context, zoneID uint) (Result, error) {
	sample, err := v.fetchSample(ctx)
	if err != nil {
		return Result{}, err
	}

	zone, err := v.zones.ZoneByID(ctx, zoneID)
	if err != nil {
		if errors.Is(err, ErrZoneNotFound) {
			return Result{}, fmt.Errorf("zone %d: %w", zoneID, ErrZoneNotFound)
		}
		return Result{}, fmt.Errorf("resolving zone %d: %w", zoneID, err)
	}

	res := evaluate(sample, zone)
	logrus.WithFields(logrus.Fields{
		"zone_id":   zoneID,
		"zone_name": zone.Name,
		"latitude":  sample.Latitude,
		"longitude": sample.Longitude,
		"within":    res.IsWithinGeofence,
	}).Info("Geofence check evaluated.")
	return res, nil
}

// RequestLocationPermission attempts one location fetch and reports whether
// it succeeded. It never returns an error; it exists to gate UI before the
// main check.
func (v *Verifier) RequestLocationPermission(ctx context.Context) bool {
	_, err := v.fetchSample(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Location permission probe failed.")
		return false
	}
	return true
}

func (v *Verifier) fetchSample(ctx context.Context) (Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	sample, err := v.source.Sample(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if !sample.Timestamp.IsZero() && v.now().Sub(sample.Timestamp) > v.maxAge {
		return Sample{}, fmt.Errorf("%w: sample older than %s", ErrLocationUnavailable, v.maxAge)
	}
	return sample, nil
}

func evaluate(sample Sample, zone Zone) Result {
	res := Result{Accuracy: sample.Accuracy}

	if len(zone.Ring) >= 3 {
		res.IsWithinGeofence = geo.PointInRing(sample.Latitude, sample.Longitude, zone.Ring)
		centLat, centLon := geo.RingCentroid(zone.Ring)
		d := geo.DistanceMeters(sample.Latitude, sample.Longitude, centLat, centLon)
		res.Distance = &d
		return res
	}

	// Radius fallback for zones without a polygon.
	d := geo.DistanceMeters(sample.Latitude, sample.Longitude, zone.Center.Y(), zone.Center.X())
	res.Distance = &d
	res.IsWithinGeofence = zone.RadiusMeters > 0 && d <= zone.RadiusMeters
	return res
}
