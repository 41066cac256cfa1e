package models

import (
	"gorm.io/gorm"
)

// Zone is a permitted trip-start boundary owned by a school. The polygon is
// stored as a GeoJSON Polygon; zones without a polygon fall back to a radius
// around the center point.
type Zone struct {
	gorm.Model

	Name     string `json:"name" binding:"required"`
	SchoolID uint   `json:"school_id"`

	// Polygon geometry in GeoJSON (SRID 4326); decoded with go-geom.
	Geometry []byte `gorm:"type:bytea" json:"geometry,omitempty"`

	CenterLat    float64 `json:"center_lat"`
	CenterLng    float64 `json:"center_lng"`
	RadiusMeters float64 `json:"radius_meters"`
}
