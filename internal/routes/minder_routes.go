package routes

import (
	"github.com/gin-gonic/gin"

	"shule_transit/internal/middleware"
)

// MinderRoutes exposes the trip lifecycle and check-in surface used by the
// minder's onboard device.
func MinderRoutes(r *gin.Engine, ctl Controllers) {
	minder := r.Group("/minder")
	minder.Use(middleware.RequireAuthWithRole("minder"))
	{
		minder.POST("/trips", ctl.Trip.StartTrip)
		minder.POST("/trips/end", ctl.Trip.EndTrip)
		minder.GET("/trips/active", ctl.Trip.GetActiveTrip)
		minder.GET("/trips/stats", ctl.Trip.GetTripStats)
		minder.POST("/trips/scan", ctl.Trip.Scan)
		minder.PATCH("/trips/students/:studentId/status", ctl.Trip.OverrideStudentStatus)
		minder.POST("/trips/tracking-link", ctl.Trip.CreateTrackingLink)

		minder.GET("/geofence/:zoneId", ctl.Geofence.CheckGeofence)
		minder.GET("/geofence/permission", ctl.Geofence.ProbeLocationPermission)
	}
}
