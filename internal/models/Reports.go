package models

import "time"

// ComplianceReport summarises one driver's HOS standing over a date range.
type ComplianceReport struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	DriverID         uint      `json:"driver" gorm:"index;not null"`
	DriverName       string    `json:"driver_name" gorm:"-"`
	DateStart        string    `json:"date_start"`
	DateEnd          string    `json:"date_end"`
	TotalHours       Decimal   `json:"total_hours" gorm:"type:numeric(10,2)"`
	TotalMiles       Decimal   `json:"total_miles" gorm:"type:numeric(10,2)"`
	TripCount        int       `json:"trip_count"`
	LimitExceeded    bool      `json:"limit_exceeded"`
	RefuelViolations int       `json:"refuel_violations"`
	Notes            string    `json:"notes"`
	GeneratedAt      time.Time `json:"generated_at" gorm:"autoCreateTime"`
}

func (ComplianceReport) TableName() string {
	return "compliance_reports"
}

type DashboardStats struct {
	TotalDrivers         int `json:"total_drivers"`
	ActiveTrips          int `json:"active_trips"`
	CompletedTripsToday  int `json:"completed_trips_today"`
	ComplianceViolations int `json:"compliance_violations"`
	DriversNeedingRefuel int `json:"drivers_needing_refuel"`
}
