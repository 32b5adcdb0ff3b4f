package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"driver_logbook/internal/hos"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
)

type createTripInput struct {
	VehicleID      string          `json:"vehicle_id"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	Distance       *models.Decimal `json:"distance"`
	StartTime      *time.Time      `json:"start_time"`
	PickupTime     *models.Decimal `json:"pickup_time"`
	DropoffTime    *models.Decimal `json:"dropoff_time"`
	Notes          string          `json:"notes"`
	PickupLat      *float64        `json:"pickup_lat"`
	PickupLng      *float64        `json:"pickup_lng"`
	DestinationLat *float64        `json:"destination_lat"`
	DestinationLng *float64        `json:"destination_lng"`
}

// validate returns DRF-style field errors, or nil.
func (in createTripInput) validate() gin.H {
	errs := gin.H{}
	if in.Origin == "" {
		errs["origin"] = []string{"This field may not be blank."}
	}
	if in.Destination == "" {
		errs["destination"] = []string{"This field may not be blank."}
	}
	switch {
	case in.Distance == nil:
		errs["distance"] = []string{"This field may not be null."}
	case in.Distance.Float64() < hos.MinimumTripDistance:
		errs["distance"] = []string{"Ensure this value is greater than or equal to 0.01."}
	}
	if in.PickupTime != nil && in.PickupTime.Float64() < 0 {
		errs["pickup_time"] = []string{"Ensure this value is greater than or equal to 0."}
	}
	if in.DropoffTime != nil && in.DropoffTime.Float64() < 0 {
		errs["dropoff_time"] = []string{"Ensure this value is greater than or equal to 0."}
	}
	if (in.PickupLat == nil) != (in.PickupLng == nil) || (in.DestinationLat == nil) != (in.DestinationLng == nil) {
		errs["lat_lng"] = []string{"Both lat and lng must be provided together."}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type completeTripInput struct {
	EndTime *time.Time `json:"end_time"`
}

// ListTrips returns the caller's trips, or everyone's for admins, newest
// first. Supports ?status= and ?limit=.
func (s *Server) ListTrips(c *gin.Context) {
	filter := repository.TripFilter{DriverID: scope(c)}
	if status := models.TripStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, fieldError("status", "Select a valid choice."))
			return
		}
		filter.Statuses = []models.TripStatus{status}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, fieldError("limit", "A valid integer is required."))
			return
		}
		filter.Limit = limit
	}
	s.respondTrips(c, filter)
}

// ActiveTrips lists trips currently in progress.
func (s *Server) ActiveTrips(c *gin.Context) {
	s.respondTrips(c, repository.TripFilter{
		DriverID: scope(c),
		Statuses: []models.TripStatus{models.TripInProgress},
	})
}

func (s *Server) respondTrips(c *gin.Context, filter repository.TripFilter) {
	ctx := c.Request.Context()
	trips, err := s.repo.ListTrips(ctx, filter)
	if err != nil {
		s.internalError(c, err, "could not list trips")
		return
	}
	if err := s.annotate(ctx, trips); err != nil {
		s.internalError(c, err, "could not annotate trips")
		return
	}
	c.JSON(http.StatusOK, models.NewPage(trips))
}

func (s *Server) GetTrip(c *gin.Context) {
	trip, ok := s.tripForRequest(c)
	if !ok {
		return
	}
	s.respondTrip(c, http.StatusOK, trip)
}

// CreateTrip starts a trip for the caller. A driver due for fuel cannot
// start a new trip.
func (s *Server) CreateTrip(c *gin.Context) {
	var input createTripInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := input.validate(); errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	driver, ok := s.currentDriver(c)
	if !ok {
		return
	}
	if driver.NeedsRefuel {
		c.JSON(http.StatusBadRequest, fieldError("refuel",
			"Refueling required before starting new trip. Miles since last fuel: "+
				strconv.FormatFloat(driver.MilesSinceLastFuel.Float64(), 'f', 2, 64)))
		return
	}

	trip := models.Trip{
		DriverID:       driver.ID,
		VehicleID:      input.VehicleID,
		Origin:         input.Origin,
		Destination:    input.Destination,
		Distance:       *input.Distance,
		StartTime:      s.now().UTC(),
		PickupTime:     models.Decimal(s.rules.PickupHours),
		DropoffTime:    models.Decimal(s.rules.DropoffHours),
		Status:         models.TripInProgress,
		Notes:          input.Notes,
		PickupLat:      input.PickupLat,
		PickupLng:      input.PickupLng,
		DestinationLat: input.DestinationLat,
		DestinationLng: input.DestinationLng,
	}
	if input.StartTime != nil {
		trip.StartTime = input.StartTime.UTC()
	}
	if input.PickupTime != nil {
		trip.PickupTime = *input.PickupTime
	}
	if input.DropoffTime != nil {
		trip.DropoffTime = *input.DropoffTime
	}

	if err := s.repo.CreateTrip(c.Request.Context(), &trip); err != nil {
		s.internalError(c, err, "could not create trip")
		return
	}
	s.tripTransitions.WithLabelValues(string(trip.Status)).Inc()
	s.log.WithFields(logrus.Fields{"trip_id": trip.ID, "driver_id": driver.ID}).Info("Trip created")
	s.respondTrip(c, http.StatusCreated, trip)
}

// CompleteTrip ends a trip. It is refused when the trip would break an
// HOS rule.
func (s *Server) CompleteTrip(c *gin.Context) {
	trip, ok := s.tripForRequest(c)
	if !ok {
		return
	}
	switch trip.Status {
	case models.TripCompleted:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Trip is already completed"})
		return
	case models.TripCancelled:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot complete a cancelled trip"})
		return
	}

	var input completeTripInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end := s.now().UTC()
	if input.EndTime != nil {
		end = input.EndTime.UTC()
	}
	if end.Before(trip.StartTime.Truncate(time.Second)) {
		c.JSON(http.StatusBadRequest, fieldError("end_time", "End time cannot be before start time."))
		return
	}

	ctx := c.Request.Context()
	driver, err := s.loadDriver(ctx, trip.DriverID)
	if err != nil {
		s.internalError(c, err, "could not load trip driver")
		return
	}
	trip.EndTime = &end
	trip.Status = models.TripCompleted
	if errs := s.rules.Violations(driver, trip); len(errs) > 0 {
		s.log.WithFields(logrus.Fields{"trip_id": trip.ID, "violations": errs}).Warn("Trip completion refused")
		c.JSON(http.StatusBadRequest, gin.H{"compliance_errors": errs})
		return
	}
	s.finishTrip(c, trip, end, false)
}

// CancelTrip abandons a trip that has not been completed.
func (s *Server) CancelTrip(c *gin.Context) {
	trip, ok := s.tripForRequest(c)
	if !ok {
		return
	}
	if trip.Status == models.TripCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot cancel a completed trip"})
		return
	}
	trip.Status = models.TripCancelled
	if err := s.repo.SaveTrip(c.Request.Context(), &trip); err != nil {
		s.internalError(c, err, "could not cancel trip")
		return
	}
	s.tripTransitions.WithLabelValues(string(trip.Status)).Inc()
	s.log.WithField("trip_id", trip.ID).Info("Trip cancelled")
	s.respondTrip(c, http.StatusOK, trip)
}

func (s *Server) SetPickup(c *gin.Context) {
	s.setTripLocation(c, func(t *models.Trip, name string, lat, lng *float64) {
		if name != "" {
			t.Origin = name
		}
		if lat != nil {
			t.PickupLat, t.PickupLng = lat, lng
		}
	})
}

func (s *Server) SetDestination(c *gin.Context) {
	s.setTripLocation(c, func(t *models.Trip, name string, lat, lng *float64) {
		if name != "" {
			t.Destination = name
		}
		if lat != nil {
			t.DestinationLat, t.DestinationLng = lat, lng
		}
	})
}

// setTripLocation applies a {name, address, lat, lng} patch. The address,
// when present, wins over the name as the display text.
func (s *Server) setTripLocation(c *gin.Context, apply func(t *models.Trip, name string, lat, lng *float64)) {
	trip, ok := s.tripForRequest(c)
	if !ok {
		return
	}
	var input models.TripLocation
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (input.Lat == nil) != (input.Lng == nil) {
		c.JSON(http.StatusBadRequest, fieldError("lat_lng", "Both lat and lng must be provided together."))
		return
	}
	if input.Lat != nil && !(models.LatLng{Lat: *input.Lat, Lng: *input.Lng}).Valid() {
		c.JSON(http.StatusBadRequest, fieldError("lat_lng", "Coordinates are out of range."))
		return
	}
	name := input.Name
	if input.Address != "" {
		name = input.Address
	}
	apply(&trip, name, input.Lat, input.Lng)
	if err := s.repo.SaveTrip(c.Request.Context(), &trip); err != nil {
		s.internalError(c, err, "could not update trip")
		return
	}
	s.respondTrip(c, http.StatusOK, trip)
}

// finishTrip stores a completed trip.
func (s *Server) finishTrip(c *gin.Context, trip models.Trip, end time.Time, arrived bool) {
	trip.EndTime = &end
	trip.Status = models.TripCompleted
	if err := s.repo.SaveTrip(c.Request.Context(), &trip); err != nil {
		s.internalError(c, err, "could not complete trip")
		return
	}
	s.tripTransitions.WithLabelValues(string(trip.Status)).Inc()
	s.log.WithFields(logrus.Fields{
		"trip_id": trip.ID,
		"hours":   hos.TripHours(trip),
		"arrived": arrived,
	}).Info("Trip completed")
	s.respondTrip(c, http.StatusOK, trip)
}

func (s *Server) respondTrip(c *gin.Context, status int, trip models.Trip) {
	trips := []models.Trip{trip}
	if err := s.annotate(c.Request.Context(), trips); err != nil {
		s.internalError(c, err, "could not annotate trip")
		return
	}
	c.JSON(status, trips[0])
}
