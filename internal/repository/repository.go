// Package repository persists drivers, trips, fuel logs and location
// updates for the dev API server.
package repository

import (
	"context"
	"errors"
	"time"

	"driver_logbook/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type TripFilter struct {
	DriverID *uint
	Statuses []models.TripStatus
	// StartedAfter keeps trips whose start time is at or after the instant.
	StartedAfter *time.Time
	Limit        int
}

type FuelFilter struct {
	DriverID *uint
}

// Repository is the storage behind the API. Lists are newest first.
type Repository interface {
	CreateDriver(ctx context.Context, d *models.Driver) error
	DriverByID(ctx context.Context, id uint) (models.Driver, error)
	DriverByUsername(ctx context.Context, username string) (models.Driver, error)
	ListDrivers(ctx context.Context) ([]models.Driver, error)
	SaveDriver(ctx context.Context, d *models.Driver) error

	CreateTrip(ctx context.Context, t *models.Trip) error
	TripByID(ctx context.Context, id uint) (models.Trip, error)
	SaveTrip(ctx context.Context, t *models.Trip) error
	ListTrips(ctx context.Context, f TripFilter) ([]models.Trip, error)

	CreateFuelLog(ctx context.Context, l *models.FuelLog) error
	ListFuelLogs(ctx context.Context, f FuelFilter) ([]models.FuelLog, error)

	AddLocation(ctx context.Context, u *models.LocationUpdate) error
	LastLocation(ctx context.Context, tripID uint) (models.LocationUpdate, error)

	CreateReport(ctx context.Context, r *models.ComplianceReport) error
	ListReports(ctx context.Context, driverID *uint) ([]models.ComplianceReport, error)
}

func statusIn(s models.TripStatus, statuses []models.TripStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
