package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"driver_logbook/internal/geo"
	"driver_logbook/internal/hos"
	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
)

// PostLocation stores a position for a trip, completes the trip when the
// position is within the arrival radius of its destination and fans the
// position out to the trip's subscribers.
func (s *Server) PostLocation(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	trip, err := s.repo.TripByID(ctx, uint(id))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	if err != nil {
		s.internalError(c, err, "could not load trip")
		return
	}
	driverID := middleware.UserID(c)
	if trip.DriverID != driverID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized for this trip"})
		return
	}

	var sample models.LocationSample
	if err := c.ShouldBindJSON(&sample); err != nil || sample.Lat == nil || sample.Lng == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}

	if !s.limiterFor(driverID).AllowN(s.now(), 1) {
		s.locationsLimited.Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	now := s.now().UTC()
	update := models.LocationUpdate{
		TripID:     trip.ID,
		DriverID:   driverID,
		Lat:        *sample.Lat,
		Lng:        *sample.Lng,
		Accuracy:   sample.Accuracy,
		Speed:      sample.Speed,
		RecordedAt: now,
	}
	if sample.RecordedAt != nil {
		update.RecordedAt = sample.RecordedAt.UTC()
	}
	if err := s.repo.AddLocation(ctx, &update); err != nil {
		s.log.WithError(err).WithField("trip_id", trip.ID).Error("Failed to save location")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save location", "detail": err.Error()})
		return
	}

	arrived := false
	if dest, ok := trip.DestinationPoint(); ok && !trip.Status.Terminal() {
		dist := geo.Distance(models.LatLng{Lat: update.Lat, Lng: update.Lng}, dest)
		if dist <= hos.ArrivalRadiusMeters {
			trip.Status = models.TripCompleted
			trip.EndTime = &now
			if err := s.repo.SaveTrip(ctx, &trip); err != nil {
				s.internalError(c, err, "could not complete trip on arrival")
				return
			}
			arrived = true
			s.tripTransitions.WithLabelValues(string(trip.Status)).Inc()
			s.log.WithFields(logrus.Fields{
				"trip_id":    trip.ID,
				"distance_m": dist,
			}).Info("Trip completed on arrival")
		}
	}

	s.locationsAccepted.Inc()
	s.hub.Publish(trip.ID, models.LocationEvent{
		Type:       models.EventLocationUpdate,
		TripID:     json.Number(strconv.FormatUint(uint64(trip.ID), 10)),
		Lat:        update.Lat,
		Lng:        update.Lng,
		Accuracy:   update.Accuracy,
		Speed:      update.Speed,
		RecordedAt: update.RecordedAt.Format(time.RFC3339Nano),
		Arrived:    arrived,
	})
	c.JSON(http.StatusCreated, update)
}

// LastLocation returns the most recent position stored for a trip.
func (s *Server) LastLocation(c *gin.Context) {
	trip, ok := s.tripForRequest(c)
	if !ok {
		return
	}
	loc, err := s.repo.LastLocation(c.Request.Context(), trip.ID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No location reported for this trip"})
		return
	}
	if err != nil {
		s.internalError(c, err, "could not load location")
		return
	}
	c.JSON(http.StatusOK, loc)
}
