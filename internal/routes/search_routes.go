package routes

import (
	"github.com/gin-gonic/gin"

	"driver_logbook/internal/controllers"
)

// SearchRoutes are open to anonymous callers.
func SearchRoutes(r *gin.RouterGroup, s *controllers.Server) {
	search := r.Group("/search")
	{
		search.GET("/address/", s.SearchAddress)
		search.GET("/reverse/", s.ReverseGeocode)
	}
	r.POST("/route/", s.Route)
}
