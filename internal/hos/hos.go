// Package hos implements the authoritative Hours-of-Service arithmetic the
// dev API attaches to drivers and trips. Clients only ever display these
// values.
package hos

import (
	"fmt"
	"math"
	"time"

	"driver_logbook/internal/models"
)

const (
	DefaultHoursLimit    = 70.0
	DefaultWindow        = 8 * 24 * time.Hour
	DefaultWarningRatio  = 0.9
	DefaultRefuelMiles   = 1000.0
	DefaultPickupHours   = 1.0
	DefaultDropoffHours  = 1.0
	ArrivalRadiusMeters  = 15.0
	MinimumTripDistance  = 0.01
	MinimumFuelAmount    = 0.01
	MinimumFuelCostValue = 0.01
)

type Rules struct {
	HoursLimit   float64
	Window       time.Duration
	WarningRatio float64
	RefuelMiles  float64
	PickupHours  float64
	DropoffHours float64
}

func DefaultRules() Rules {
	return Rules{
		HoursLimit:   DefaultHoursLimit,
		Window:       DefaultWindow,
		WarningRatio: DefaultWarningRatio,
		RefuelMiles:  DefaultRefuelMiles,
		PickupHours:  DefaultPickupHours,
		DropoffHours: DefaultDropoffHours,
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// TripHours is driving time plus pickup and dropoff time. A trip without an
// end time has not accrued any hours.
func TripHours(t models.Trip) float64 {
	if t.EndTime == nil {
		return 0
	}
	driving := t.EndTime.Sub(t.StartTime).Hours()
	return Round2(driving + t.PickupTime.Float64() + t.DropoffTime.Float64())
}

// TotalHours sums completed trips that ended inside the trailing window.
func (r Rules) TotalHours(trips []models.Trip, now time.Time) float64 {
	since := now.Add(-r.Window)
	var total float64
	for _, t := range trips {
		if t.Status != models.TripCompleted || t.EndTime == nil {
			continue
		}
		if t.EndTime.Before(since) {
			continue
		}
		total += TripHours(t)
	}
	return Round2(total)
}

func (r Rules) RemainingHours(total float64) float64 {
	return Round2(math.Max(0, r.HoursLimit-total))
}

func (r Rules) Status(total float64) models.ComplianceStatus {
	switch {
	case total >= r.HoursLimit:
		return models.ComplianceExceeded
	case total >= r.HoursLimit*r.WarningRatio:
		return models.ComplianceWarning
	default:
		return models.ComplianceCompliant
	}
}

// MilesSinceLastFuel sums completed trip distance after the latest fuel
// log, or over all completed trips when the driver never refuelled.
func (r Rules) MilesSinceLastFuel(trips []models.Trip, fuel []models.FuelLog) float64 {
	var last *time.Time
	for i := range fuel {
		ts := fuel[i].Timestamp
		if last == nil || ts.After(*last) {
			last = &ts
		}
	}
	var miles float64
	for _, t := range trips {
		if t.Status != models.TripCompleted {
			continue
		}
		if last != nil && (t.EndTime == nil || !t.EndTime.After(*last)) {
			continue
		}
		miles += t.Distance.Float64()
	}
	return Round2(miles)
}

func (r Rules) NeedsRefuel(miles float64) bool {
	return miles >= r.RefuelMiles
}

// Snapshot fills the derived compliance fields of a driver.
func (r Rules) Snapshot(d *models.Driver, trips []models.Trip, fuel []models.FuelLog, now time.Time) {
	total := r.TotalHours(trips, now)
	miles := r.MilesSinceLastFuel(trips, fuel)

	d.FullName = models.FullNameOf(*d)
	d.TotalHours8Days = models.Decimal(total)
	d.RemainingHours8Days = models.Decimal(r.RemainingHours(total))
	d.ComplianceStatus = r.Status(total)
	d.MilesSinceLastFuel = models.Decimal(miles)
	d.NeedsRefuel = r.NeedsRefuel(miles)
}

// Violations lists the HOS rules a trip breaks for a driver whose snapshot
// excludes the trip itself.
func (r Rules) Violations(d models.Driver, t models.Trip) []string {
	errs := []string{}
	if d.NeedsRefuel {
		errs = append(errs, fmt.Sprintf("Refueling required. Miles since last fuel: %.2f", d.MilesSinceLastFuel.Float64()))
	}
	if t.Status == models.TripCompleted && t.EndTime != nil {
		projected := Round2(d.TotalHours8Days.Float64() + TripHours(t))
		if projected > r.HoursLimit {
			errs = append(errs, fmt.Sprintf(
				"Trip would exceed %g-hour limit. Current: %.2f hrs, After trip: %.2f hrs",
				r.HoursLimit, d.TotalHours8Days.Float64(), projected))
		}
	}
	return errs
}

// Annotate fills the derived trip fields for display. The driver snapshot
// already counts a completed trip inside the window, so that trip's own hours
// are taken out before projecting.
func (r Rules) Annotate(t *models.Trip, d models.Driver, now time.Time) {
	hours := TripHours(*t)
	base := d.TotalHours8Days.Float64()
	if t.Status == models.TripCompleted && t.EndTime != nil && !t.EndTime.Before(now.Add(-r.Window)) {
		base = math.Max(0, Round2(base-hours))
	}
	d.TotalHours8Days = models.Decimal(base)

	t.DriverName = models.FullNameOf(d)
	t.TotalTripHours = models.Decimal(hours)
	t.DriverHoursAfterTrip = models.Decimal(Round2(base + hours))
	t.ComplianceErrors = r.Violations(d, *t)
}

// CostPerGallon is cost divided by amount, zero when amount is zero.
func CostPerGallon(cost, amount float64) float64 {
	if amount == 0 {
		return 0
	}
	return Round2(cost / amount)
}
