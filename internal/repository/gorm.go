package repository

import (
	"context"
	"errors"

	"driver_logbook/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// Gorm is a Repository on Postgres.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (g *Gorm) CreateDriver(ctx context.Context, d *models.Driver) error {
	return translate(g.db.WithContext(ctx).Create(d).Error)
}

func (g *Gorm) DriverByID(ctx context.Context, id uint) (models.Driver, error) {
	var d models.Driver
	err := g.db.WithContext(ctx).First(&d, id).Error
	return d, translate(err)
}

func (g *Gorm) DriverByUsername(ctx context.Context, username string) (models.Driver, error) {
	var d models.Driver
	err := g.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", username).First(&d).Error
	return d, translate(err)
}

func (g *Gorm) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	var out []models.Driver
	err := g.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) SaveDriver(ctx context.Context, d *models.Driver) error {
	return translate(g.db.WithContext(ctx).Save(d).Error)
}

func (g *Gorm) CreateTrip(ctx context.Context, t *models.Trip) error {
	if t.Status == "" {
		t.Status = models.TripPending
	}
	return translate(g.db.WithContext(ctx).Create(t).Error)
}

func (g *Gorm) TripByID(ctx context.Context, id uint) (models.Trip, error) {
	var t models.Trip
	err := g.db.WithContext(ctx).First(&t, id).Error
	return t, translate(err)
}

func (g *Gorm) SaveTrip(ctx context.Context, t *models.Trip) error {
	res := g.db.WithContext(ctx).Save(t)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) ListTrips(ctx context.Context, f TripFilter) ([]models.Trip, error) {
	q := g.db.WithContext(ctx).Model(&models.Trip{})
	if f.DriverID != nil {
		q = q.Where("driver_id = ?", *f.DriverID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.StartedAfter != nil {
		q = q.Where("start_time >= ?", *f.StartedAfter)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Trip
	err := q.Order("start_time DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) CreateFuelLog(ctx context.Context, l *models.FuelLog) error {
	return translate(g.db.WithContext(ctx).Create(l).Error)
}

func (g *Gorm) ListFuelLogs(ctx context.Context, f FuelFilter) ([]models.FuelLog, error) {
	q := g.db.WithContext(ctx).Model(&models.FuelLog{})
	if f.DriverID != nil {
		q = q.Where("driver_id = ?", *f.DriverID)
	}
	var out []models.FuelLog
	err := q.Order("timestamp DESC, id DESC").Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) AddLocation(ctx context.Context, u *models.LocationUpdate) error {
	return translate(g.db.WithContext(ctx).Create(u).Error)
}

func (g *Gorm) LastLocation(ctx context.Context, tripID uint) (models.LocationUpdate, error) {
	var u models.LocationUpdate
	err := g.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("recorded_at DESC, id DESC").First(&u).Error
	return u, translate(err)
}

func (g *Gorm) CreateReport(ctx context.Context, r *models.ComplianceReport) error {
	return translate(g.db.WithContext(ctx).Create(r).Error)
}

func (g *Gorm) ListReports(ctx context.Context, driverID *uint) ([]models.ComplianceReport, error) {
	q := g.db.WithContext(ctx).Model(&models.ComplianceReport{})
	if driverID != nil {
		q = q.Where("driver_id = ?", *driverID)
	}
	var out []models.ComplianceReport
	err := q.Order("generated_at DESC, id DESC").Find(&out).Error
	return out, translate(err)
}
