package routes

import (
	"github.com/gin-gonic/gin"

	"shule_transit/internal/controllers"
	"shule_transit/internal/middleware"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.GET("/schools", controllers.ListSchools)
		admin.GET("/schools/:id", controllers.GetSchool)
		admin.PUT("/schools/:id", controllers.UpdateSchool)
		admin.GET("/buses", controllers.ListBuses)
		admin.GET("/students", controllers.ListStudents)
		admin.GET("/minders", controllers.ListMinders)
	}
}
