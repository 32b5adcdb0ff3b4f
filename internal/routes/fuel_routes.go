package routes

import (
	"github.com/gin-gonic/gin"

	"driver_logbook/internal/controllers"
)

func FuelRoutes(r *gin.RouterGroup, s *controllers.Server) {
	fuel := r.Group("/fuel-logs")
	fuel.Use(s.Tokens().RequireAuth())
	{
		fuel.GET("/", s.ListFuelLogs)
		fuel.POST("/", s.CreateFuelLog)
	}
}
