package routes

import (
	"github.com/gin-gonic/gin"

	"driver_logbook/internal/controllers"
)

func DriverRoutes(r *gin.RouterGroup, s *controllers.Server) {
	driver := r.Group("/drivers")
	driver.Use(s.Tokens().RequireAuth())
	{
		driver.GET("/", s.ListDrivers)
		driver.GET("/me/", s.Me)
		driver.PATCH("/update_profile/", s.UpdateProfile)
		driver.PUT("/update_profile/", s.UpdateProfile)
		driver.GET("/:id/compliance_status/", s.ComplianceStatus)
	}
}
