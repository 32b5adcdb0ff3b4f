package routes

import (
	"github.com/gin-gonic/gin"

	"driver_logbook/internal/controllers"
)

func AuthRoutes(r *gin.RouterGroup, s *controllers.Server) {
	auth := r.Group("/auth")
	{
		auth.POST("/register/", s.Register)
		auth.POST("/login/", s.Login)
		auth.POST("/refresh/", s.Refresh)
	}
}
