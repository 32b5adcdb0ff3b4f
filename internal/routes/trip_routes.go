package routes

import (
	"github.com/gin-gonic/gin"

	"driver_logbook/internal/controllers"
)

func TripRoutes(r *gin.RouterGroup, s *controllers.Server) {
	trips := r.Group("/trips")
	trips.Use(s.Tokens().RequireAuth())
	{
		trips.GET("/", s.ListTrips)
		trips.POST("/", s.CreateTrip)
		trips.GET("/active/", s.ActiveTrips)
		trips.GET("/:id/", s.GetTrip)
		trips.POST("/:id/complete/", s.CompleteTrip)
		trips.POST("/:id/cancel/", s.CancelTrip)
		trips.PATCH("/:id/pickup/", s.SetPickup)
		trips.PATCH("/:id/destination/", s.SetDestination)
		trips.POST("/:id/location/", s.PostLocation)
		trips.GET("/:id/location/", s.LastLocation)
	}
}
