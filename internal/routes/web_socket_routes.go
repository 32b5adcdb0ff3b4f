package routes

import (
	"github.com/gin-gonic/gin"

	"driver_logbook/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, s *controllers.Server) {
	ws := r.Group("/ws")
	{
		ws.GET("/trips/:id/", s.HandleTripSocket)
	}
}
