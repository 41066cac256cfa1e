package routes

import (
	"github.com/gin-gonic/gin"

	"shule_transit/internal/controllers"
	"shule_transit/internal/middleware"
)

// SchoolRoutes is the school operator's fleet management surface.
func SchoolRoutes(r *gin.Engine) {
	school := r.Group("/school")
	school.Use(middleware.RequireAuthWithRole("school"))
	{
		school.POST("/buses", controllers.CreateBus)
		school.GET("/buses", controllers.ListBuses)
		school.GET("/buses/:id", controllers.GetBus)
		school.PUT("/buses/:id", controllers.UpdateBus)
		school.DELETE("/buses/:id", controllers.DeleteBus)

		school.POST("/routes", controllers.CreateRoute)
		school.GET("/routes", controllers.ListRoutes)
		school.GET("/routes/:id", controllers.GetRoute)
		school.PUT("/routes/:id", controllers.UpdateRoute)

		school.POST("/zones", controllers.CreateZone)
		school.GET("/zones", controllers.ListZones)
		school.GET("/zones/:id", controllers.GetZone)
		school.PUT("/zones/:id", controllers.UpdateZone)

		school.POST("/students", controllers.CreateStudent)
		school.GET("/students", controllers.ListStudents)
		school.GET("/students/:id", controllers.GetStudent)
		school.PUT("/students/:id", controllers.UpdateStudent)
		school.POST("/students/:id/tag", controllers.AssignTag)

		school.GET("/minders", controllers.ListMinders)
		school.GET("/minders/:id", controllers.GetMinder)
		school.POST("/minders/:id/bus", controllers.AssignMinderToBus)
	}
}
