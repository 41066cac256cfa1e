package routes

import (
	"github.com/gin-gonic/gin"

	"shule_transit/internal/controllers"
	"shule_transit/internal/middleware"
)

// ParentRoutes is the guardian-facing surface: their children and the live
// trip view for the route a child rides.
func ParentRoutes(r *gin.Engine, ctl Controllers) {
	parent := r.Group("/parent")
	parent.Use(middleware.RequireAuthWithRole("parent"))
	{
		parent.GET("/students", controllers.ListMyChildren)
		parent.GET("/trips/active", ctl.Trip.GetActiveTrip)
	}
}
