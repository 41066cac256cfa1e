package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"shule_transit/internal/config"
	geomath "shule_transit/internal/geo"
	"shule_transit/internal/models"
)

type zoneInput struct {
	Name         string          `json:"name" binding:"required"`
	SchoolID     uint            `json:"school_id"`
	Geometry     json.RawMessage `json:"geometry"`
	CenterLat    float64         `json:"center_lat"`
	CenterLng    float64         `json:"center_lng"`
	RadiusMeters float64         `json:"radius_meters"`
}

// parseZoneRing validates a GeoJSON Polygon and returns its exterior ring.
func parseZoneRing(raw []byte) ([]geom.Coord, error) {
	var g geom.T
	if err := gjson.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, errors.New("geometry must be a GeoJSON Polygon")
	}
	if poly.NumLinearRings() == 0 {
		return nil, errors.New("polygon has no exterior ring")
	}
	ring := poly.LinearRing(0).Coords()
	if len(ring) < 4 {
		return nil, errors.New("polygon ring needs at least four positions")
	}
	return ring, nil
}

// CreateZone registers a trip-start boundary. A polygon geometry is optional;
// without one the zone is a radius around the center point. When a polygon is
// given and no center is, the center is derived from the ring.
func CreateZone(c *gin.Context) {
	var input zoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone := models.Zone{
		Name:         input.Name,
		SchoolID:     input.SchoolID,
		CenterLat:    input.CenterLat,
		CenterLng:    input.CenterLng,
		RadiusMeters: input.RadiusMeters,
	}

	if len(input.Geometry) > 0 {
		ring, err := parseZoneRing(input.Geometry)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geometry: " + err.Error()})
			return
		}
		zone.Geometry = input.Geometry
		if input.CenterLat == 0 && input.CenterLng == 0 {
			zone.CenterLat, zone.CenterLng = geomath.RingCentroid(ring)
		}
	} else if input.RadiusMeters <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "zone needs a polygon geometry or a positive radius_meters"})
		return
	}

	if err := config.DB.Create(&zone).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create zone: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"zone": zone})
}

// GetZone retrieves a zone by ID.
func GetZone(c *gin.Context) {
	id := c.Param("id")
	var zone models.Zone
	if err := config.DB.First(&zone, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "zone not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone": zone})
}

// ListZones lists zones, optionally filtered by school_id.
func ListZones(c *gin.Context) {
	query := config.DB
	if schoolID := c.Query("school_id"); schoolID != "" {
		query = query.Where("school_id = ?", schoolID)
	}

	var zones []models.Zone
	if err := query.Find(&zones).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch zones"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": zones})
}

// UpdateZone modifies an existing zone.
func UpdateZone(c *gin.Context) {
	id := c.Param("id")
	var zone models.Zone
	if err := config.DB.First(&zone, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "zone not found"})
		return
	}

	var input struct {
		Name         *string         `json:"name"`
		Geometry     json.RawMessage `json:"geometry"`
		CenterLat    *float64        `json:"center_lat"`
		CenterLng    *float64        `json:"center_lng"`
		RadiusMeters *float64        `json:"radius_meters"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		zone.Name = *input.Name
	}
	if len(input.Geometry) > 0 {
		if _, err := parseZoneRing(input.Geometry); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geometry: " + err.Error()})
			return
		}
		zone.Geometry = input.Geometry
	}
	if input.CenterLat != nil {
		zone.CenterLat = *input.CenterLat
	}
	if input.CenterLng != nil {
		zone.CenterLng = *input.CenterLng
	}
	if input.RadiusMeters != nil {
		zone.RadiusMeters = *input.RadiusMeters
	}

	if err := config.DB.Save(&zone).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update zone"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone": zone})
}
