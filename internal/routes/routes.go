package routes

import (
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"shule_transit/internal/controllers"
	"shule_transit/internal/metrics"
)

// Controllers carries the stateful handlers the routes need. Handlers with no
// injected state are plain functions in the controllers package.
type Controllers struct {
	Trip     *controllers.TripController
	Geofence *controllers.GeofenceController
	WS       *controllers.WebSocketController
	Tracking *controllers.TrackingController
	Metrics  *metrics.Collector
}

func SetupRouter(ctl Controllers) *gin.Engine {
	r := gin.New()
	r.Use(ginlog.SetLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// Token-authenticated pull baseline for tracking viewers.
	r.GET("/track/snapshot", ctl.Tracking.GetTripSnapshot)
	if ctl.Metrics != nil {
		r.GET("/metrics", gin.WrapH(ctl.Metrics.Handler()))
	}

	AuthRoutes(r)
	MinderRoutes(r, ctl)
	SchoolRoutes(r)
	ParentRoutes(r, ctl)
	AdminRoutes(r)
	WebSocketRoutes(r, ctl)

	return r
}
