package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"driver_logbook/internal/hos"
	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
)

type createFuelLogInput struct {
	Trip            *uint           `json:"trip"`
	FuelType        models.FuelType `json:"fuel_type"`
	FuelAmount      *models.Decimal `json:"fuel_amount"`
	FuelCost        *models.Decimal `json:"fuel_cost"`
	OdometerReading *models.Decimal `json:"odometer_reading"`
	Location        string          `json:"location"`
	Timestamp       *time.Time      `json:"timestamp"`
	Notes           string          `json:"notes"`
}

func (in createFuelLogInput) validate() gin.H {
	errs := gin.H{}
	if in.FuelType != "" && !in.FuelType.Valid() {
		errs["fuel_type"] = []string{`"` + string(in.FuelType) + `" is not a valid choice.`}
	}
	if in.FuelAmount == nil || in.FuelAmount.Float64() < hos.MinimumFuelAmount {
		errs["fuel_amount"] = []string{"Ensure this value is greater than or equal to 0.01."}
	}
	if in.FuelCost == nil || in.FuelCost.Float64() < hos.MinimumFuelCostValue {
		errs["fuel_cost"] = []string{"Ensure this value is greater than or equal to 0.01."}
	}
	if in.OdometerReading == nil {
		errs["odometer_reading"] = []string{"This field is required."}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ListFuelLogs returns the caller's fuel logs, or everyone's for admins.
func (s *Server) ListFuelLogs(c *gin.Context) {
	ctx := c.Request.Context()
	logs, err := s.repo.ListFuelLogs(ctx, repository.FuelFilter{DriverID: scope(c)})
	if err != nil {
		s.internalError(c, err, "could not list fuel logs")
		return
	}
	names := make(map[uint]string)
	for i := range logs {
		name, ok := names[logs[i].DriverID]
		if !ok {
			d, err := s.repo.DriverByID(ctx, logs[i].DriverID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				s.internalError(c, err, "could not load fuel log driver")
				return
			}
			name = models.FullNameOf(d)
			names[logs[i].DriverID] = name
		}
		decorateFuelLog(&logs[i], name)
	}
	c.JSON(http.StatusOK, models.NewPage(logs))
}

// CreateFuelLog records a refuel, which resets the caller's refuel counter.
func (s *Server) CreateFuelLog(c *gin.Context) {
	var input createFuelLogInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := input.validate(); errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	ctx := c.Request.Context()
	driverID := middleware.UserID(c)
	if input.Trip != nil {
		trip, err := s.repo.TripByID(ctx, *input.Trip)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && trip.DriverID != driverID) {
			c.JSON(http.StatusBadRequest, fieldError("trip", "Invalid pk - object does not exist."))
			return
		}
		if err != nil {
			s.internalError(c, err, "could not load trip")
			return
		}
	}
	driver, err := s.repo.DriverByID(ctx, driverID)
	if err != nil {
		s.internalError(c, err, "could not load driver")
		return
	}

	entry := models.FuelLog{
		DriverID:        driverID,
		TripID:          input.Trip,
		FuelType:        input.FuelType,
		FuelAmount:      *input.FuelAmount,
		FuelCost:        *input.FuelCost,
		OdometerReading: *input.OdometerReading,
		Location:        input.Location,
		Timestamp:       s.now().UTC(),
		Notes:           input.Notes,
	}
	if entry.FuelType == "" {
		entry.FuelType = models.FuelDiesel
	}
	if input.Timestamp != nil {
		entry.Timestamp = input.Timestamp.UTC()
	}
	if err := s.repo.CreateFuelLog(ctx, &entry); err != nil {
		s.internalError(c, err, "could not create fuel log")
		return
	}
	s.log.WithFields(logrus.Fields{
		"fuel_log_id": entry.ID,
		"driver_id":   driverID,
		"amount":      entry.FuelAmount.Float64(),
	}).Info("Fuel logged")
	decorateFuelLog(&entry, models.FullNameOf(driver))
	c.JSON(http.StatusCreated, entry)
}

func decorateFuelLog(l *models.FuelLog, driverName string) {
	l.DriverName = driverName
	l.CostPerGallon = models.Decimal(hos.CostPerGallon(l.FuelCost.Float64(), l.FuelAmount.Float64()))
}
