package routes

import (
	"github.com/gin-gonic/gin"

	"driver_logbook/internal/controllers"
)

// AdminRoutes mounts reporting. Dashboard stats answer 403 to drivers
// themselves, so only authentication is required here.
func AdminRoutes(r *gin.RouterGroup, s *controllers.Server) {
	auth := s.Tokens().RequireAuth()

	reports := r.Group("/compliance-reports", auth)
	{
		reports.GET("/", s.ListReports)
		reports.POST("/generate/", s.GenerateReport)
	}

	dashboard := r.Group("/dashboard", auth)
	{
		dashboard.GET("/stats/", s.DashboardStats)
	}
}
