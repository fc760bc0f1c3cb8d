package routes

import (
	"zone_dispatch/internal/controllers"
	"zone_dispatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

func DispatcherRoutes(r *gin.Engine) {
	d := r.Group("dispatch")
	d.Use(middleware.RequireAuthWithRole("dispatcher"))
	{
		d.POST("/routes", controllers.CreateRoute)
		d.GET("/routes", controllers.ListRoutes)
		d.GET("/routes/suggest", controllers.SuggestRange)
		d.GET("/routes/:id", controllers.GetRoute)
		d.PATCH("/routes/:id", controllers.UpdateRoute)
		d.PUT("/routes/:id/status", controllers.SetRouteStatus)
		d.DELETE("/routes/:id", controllers.DeleteRoute)

		d.GET("/routes/:id/assignments", controllers.ListAssignments)
		d.POST("/routes/:id/assignments/bulk", controllers.BulkAssign)

		d.POST("/assignments", controllers.AssignCustomer)
		d.DELETE("/assignments/customer/:id", controllers.UnassignCustomer)

		d.POST("/customers", controllers.CreateCustomer)
		d.GET("/customers", controllers.ListCustomers)
		d.GET("/customers/:id", controllers.GetCustomer)
		d.PUT("/customers/:id", controllers.UpdateCustomer)
		d.DELETE("/customers/:id", controllers.DeleteCustomer)
	}
}
