package routes

import (
	"zone_dispatch/internal/controllers"
	"zone_dispatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.POST("/cities", controllers.CreateCity)
		admin.GET("/cities", controllers.ListCities)
		admin.GET("/cities/:id", controllers.GetCity)
		admin.PUT("/cities/:id", controllers.UpdateCity)
		admin.DELETE("/cities/:id", controllers.DeleteCity)
	}
}
