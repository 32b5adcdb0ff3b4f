package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"driver_logbook/internal/controllers"
	"driver_logbook/internal/middleware"
)

// SetupRouter mounts the API under /api, the trip channel under /ws and
// metrics under /metrics.
func SetupRouter(s *controllers.Server, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(
		ginlog.SetLogger(
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/metrics"}),
			ginlog.WithWriter(logrus.StandardLogger().Out),
		),
		gin.Recovery(),
		middleware.RequestID(),
	)

	api := r.Group("/api")
	AuthRoutes(api, s)
	DriverRoutes(api, s)
	TripRoutes(api, s)
	FuelRoutes(api, s)
	AdminRoutes(api, s)
	SearchRoutes(api, s)

	WebSocketRoutes(r, s)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return r
}
