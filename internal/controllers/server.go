package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"driver_logbook/internal/hos"
	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
)

// Server holds the handlers of the dev logbook API.
type Server struct {
	repo   repository.Repository
	tokens *middleware.TokenManager
	rules  hos.Rules
	hub    *LocationHub
	log    *logrus.Entry
	now    func() time.Time

	locationRate rate.Limit
	limitersMu   sync.Mutex
	limiters     map[uint]*rate.Limiter
	search       searchLimiter

	locationsAccepted prometheus.Counter
	locationsLimited  prometheus.Counter
	tripTransitions   *prometheus.CounterVec
}

type Options struct {
	Repo   repository.Repository
	Tokens *middleware.TokenManager
	Rules  hos.Rules
	// LocationRate is the per-driver location ingest rate in requests per
	// second.
	LocationRate float64
	Registerer   prometheus.Registerer
	Logger       *logrus.Entry
	Now          func() time.Time
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rules := opts.Rules
	if rules.HoursLimit == 0 {
		rules = hos.DefaultRules()
	}
	perSec := opts.LocationRate
	if perSec <= 0 {
		perSec = 1
	}
	f := promauto.With(opts.Registerer)
	return &Server{
		repo:         opts.Repo,
		tokens:       opts.Tokens,
		rules:        rules,
		hub:          NewLocationHub(log),
		log:          log,
		now:          now,
		locationRate: rate.Limit(perSec),
		limiters:     make(map[uint]*rate.Limiter),
		locationsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logbook", Subsystem: "api", Name: "locations_accepted_total",
			Help: "Location updates stored and broadcast.",
		}),
		locationsLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logbook", Subsystem: "api", Name: "locations_rate_limited_total",
			Help: "Location updates rejected by the per-driver rate limit.",
		}),
		tripTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logbook", Subsystem: "api", Name: "trip_transitions_total",
			Help: "Trip status changes by target status.",
		}, []string{"status"}),
	}
}

func (s *Server) Tokens() *middleware.TokenManager {
	return s.tokens
}

func (s *Server) Hub() *LocationHub {
	return s.hub
}

// loadDriver returns the driver with a fresh HOS snapshot.
func (s *Server) loadDriver(ctx context.Context, id uint) (models.Driver, error) {
	d, err := s.repo.DriverByID(ctx, id)
	if err != nil {
		return models.Driver{}, err
	}
	if err := s.snapshot(ctx, &d); err != nil {
		return models.Driver{}, err
	}
	return d, nil
}

func (s *Server) snapshot(ctx context.Context, d *models.Driver) error {
	driverID := d.ID
	trips, err := s.repo.ListTrips(ctx, repository.TripFilter{DriverID: &driverID})
	if err != nil {
		return err
	}
	fuel, err := s.repo.ListFuelLogs(ctx, repository.FuelFilter{DriverID: &driverID})
	if err != nil {
		return err
	}
	s.rules.Snapshot(d, trips, fuel, s.now())
	return nil
}

// annotate fills the derived trip fields, loading each driver once.
func (s *Server) annotate(ctx context.Context, trips []models.Trip) error {
	drivers := make(map[uint]models.Driver)
	for i := range trips {
		d, ok := drivers[trips[i].DriverID]
		if !ok {
			var err error
			d, err = s.loadDriver(ctx, trips[i].DriverID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			drivers[trips[i].DriverID] = d
		}
		s.rules.Annotate(&trips[i], d, s.now())
	}
	return nil
}

// currentDriver loads the authenticated driver, answering 401 when the
// account disappeared.
func (s *Server) currentDriver(c *gin.Context) (models.Driver, bool) {
	d, err := s.loadDriver(c.Request.Context(), middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
		return models.Driver{}, false
	}
	if err != nil {
		s.internalError(c, err, "could not load driver")
		return models.Driver{}, false
	}
	return d, true
}

// tripForRequest loads the trip named in the URL if the caller may see it.
func (s *Server) tripForRequest(c *gin.Context) (models.Trip, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return models.Trip{}, false
	}
	trip, err := s.repo.TripByID(c.Request.Context(), uint(id))
	if errors.Is(err, repository.ErrNotFound) ||
		(err == nil && trip.DriverID != middleware.UserID(c) && !middleware.IsAdmin(c)) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return models.Trip{}, false
	}
	if err != nil {
		s.internalError(c, err, "could not load trip")
		return models.Trip{}, false
	}
	return trip, true
}

func (s *Server) internalError(c *gin.Context, err error, msg string) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"request_id": c.GetHeader("X-Request-ID"),
	}).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "detail": msg})
}

func (s *Server) limiterFor(driverID uint) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()
	l, ok := s.limiters[driverID]
	if !ok {
		l = rate.NewLimiter(s.locationRate, 1)
		s.limiters[driverID] = l
	}
	return l
}

// scope narrows list queries to the caller unless they are an admin.
func scope(c *gin.Context) *uint {
	if middleware.IsAdmin(c) {
		return nil
	}
	id := middleware.UserID(c)
	return &id
}

func fieldError(field, msg string) gin.H {
	return gin.H{field: []string{msg}}
}
