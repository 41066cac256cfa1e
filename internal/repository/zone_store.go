package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
	"gorm.io/gorm"

	"shule_transit/internal/geofence"
	"shule_transit/internal/models"
)

// ZoneStore resolves zone reference data from the database, decoding the
// stored GeoJSON polygon into ring coordinates for the verifier.
type ZoneStore struct {
	db *gorm.DB
}

func NewZoneStore(db *gorm.DB) *ZoneStore {
	return &ZoneStore{db: db}
}

func (s *ZoneStore) ZoneByID(ctx context.Context, zoneID uint) (geofence.Zone, error) {
	var row models.Zone
	if err := s.db.WithContext(ctx).First(&row, zoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return geofence.Zone{}, geofence.ErrZoneNotFound
		}
		return geofence.Zone{}, fmt.Errorf("fetching zone %d: %w", zoneID, err)
	}

	zone := geofence.Zone{
		ID:           row.ID,
		Name:         row.Name,
		Center:       geom.Coord{row.CenterLng, row.CenterLat},
		RadiusMeters: row.RadiusMeters,
	}

	if len(row.Geometry) > 0 {
		var g geom.T
		if err := geomjson.Unmarshal(row.Geometry, &g); err != nil {
			return geofence.Zone{}, fmt.Errorf("decoding zone %d geometry: %w", zoneID, err)
		}
		if poly, ok := g.(*geom.Polygon); ok && poly.NumLinearRings() > 0 {
			zone.Ring = poly.LinearRing(0).Coords()
		}
	}
	return zone, nil
}
