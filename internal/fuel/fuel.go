// Package fuel records fuel purchases and formats their cost figures.
package fuel

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"driver_logbook/internal/apiclient"
	"driver_logbook/internal/cache"
	"driver_logbook/internal/models"

	"github.com/sirupsen/logrus"
)

// Form is a fuel purchase as typed by the user.
type Form struct {
	TripID          *uint
	FuelType        models.FuelType
	FuelAmount      string
	FuelCost        string
	OdometerReading string
	Location        string
	Timestamp       string
	Notes           string
}

type CreateFuelLogRequest struct {
	Trip            *uint           `json:"trip"`
	FuelType        models.FuelType `json:"fuel_type"`
	FuelAmount      *float64        `json:"fuel_amount"`
	FuelCost        *float64        `json:"fuel_cost"`
	OdometerReading *float64        `json:"odometer_reading"`
	Location        string          `json:"location"`
	Timestamp       string          `json:"timestamp"`
	Notes           string          `json:"notes"`
}

func (f Form) Request(now time.Time) CreateFuelLogRequest {
	ft := f.FuelType
	if ft == "" {
		ft = models.FuelDiesel
	}
	ts := strings.TrimSpace(f.Timestamp)
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339)
	} else if t, err := time.Parse(time.RFC3339, ts); err == nil {
		ts = t.UTC().Format(time.RFC3339)
	}
	return CreateFuelLogRequest{
		Trip:            f.TripID,
		FuelType:        ft,
		FuelAmount:      parseNumber(f.FuelAmount),
		FuelCost:        parseNumber(f.FuelCost),
		OdometerReading: parseNumber(f.OdometerReading),
		Location:        strings.TrimSpace(f.Location),
		Timestamp:       ts,
		Notes:           f.Notes,
	}
}

// Refresher re-reads the signed-in driver.
type Refresher interface {
	RefreshUser(ctx context.Context) (*models.Driver, error)
}

type Service struct {
	api       *apiclient.Client
	refresher Refresher
	logs *cache.Collection[models.FuelLog]
	log  *logrus.Entry
	now  func() time.Time
}

func NewService(api *apiclient.Client, refresher Refresher, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Service{api: api, refresher: refresher, log: log.WithField("component", "fuel"), now: time.Now}
	s.logs = cache.NewCollection("fuel_logs", func(ctx context.Context) ([]models.FuelLog, error) {
		page, err := apiclient.Get[models.Page[models.FuelLog]](ctx, api, "/fuel-logs/")
		return page.Results, err
	}, log)
	return s
}

// Reload replaces the cached fuel log list.
func (s *Service) Reload(ctx context.Context) error {
	return s.logs.Reload(ctx)
}

func (s *Service) List() []models.FuelLog {
	return s.logs.Items()
}

// LogFuel records a purchase. Refuelling resets miles since last fuel, so
// the driver profile is refreshed afterwards.
func (s *Service) LogFuel(ctx context.Context, form Form) (models.FuelLog, error) {
	entry, err := apiclient.Post[models.FuelLog](ctx, s.api, "/fuel-logs/", form.Request(s.now()))
	if err != nil {
		return models.FuelLog{}, err
	}
	s.log.WithFields(logrus.Fields{"fuel_log_id": entry.ID, "gallons": entry.FuelAmount}).Info("Fuel logged")
	if s.refresher != nil {
		if _, err := s.refresher.RefreshUser(ctx); err != nil {
			s.log.WithError(err).Warn("Could not refresh driver after fuel log")
		}
	}
	_ = s.logs.Reload(ctx)
	return entry, nil
}

// FormatMoney renders n with two decimals, or "0.00" when n is not a
// finite number.
func FormatMoney(n any) string {
	f, ok := toFloat(n)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return "0.00"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// CostPerGallon divides cost by amount for display.
func CostPerGallon(cost, amount any) string {
	c, ok1 := toFloat(cost)
	a, ok2 := toFloat(amount)
	if !ok1 || !ok2 || a == 0 {
		return "0.00"
	}
	return FormatMoney(c / a)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case models.Decimal:
		return n.Float64(), true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
