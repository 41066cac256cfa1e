package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"shule_transit/internal/geofence"
)

// GeofenceController lets the minder app pre-check zone containment before
// attempting a trip start. Retries are an explicit "check again" action.
type GeofenceController struct {
	Verifier *geofence.Verifier
}

// CheckGeofence evaluates whether the device is inside the zone.
func (gc *GeofenceController) CheckGeofence(c *gin.Context) {
	zoneIDStr := c.Param("zoneId")
	zoneID, err := strconv.ParseUint(zoneIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid zone ID format."})
		return
	}

	result, err := gc.Verifier.CheckGeofence(c.Request.Context(), uint(zoneID))
	if err != nil {
		switch {
		case errors.Is(err, geofence.ErrZoneNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Zone not found."})
		case errors.Is(err, geofence.ErrLocationUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Could not obtain a device location.",
				"status":    "permission-denied",
				"retryable": true,
			})
		default:
			logrus.WithError(err).Error("Geofence check failed.")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Geofence check failed."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ProbeLocationPermission attempts one location fetch and reports whether it
// worked, so the UI can gate the main check.
func (gc *GeofenceController) ProbeLocationPermission(c *gin.Context) {
	granted := gc.Verifier.RequestLocationPermission(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"granted": granted})
}
