// internal/models/fuel_log.go
package models

import "time"

type FuelType string

const (
	FuelDiesel   FuelType = "diesel"
	FuelGasoline FuelType = "gasoline"
	FuelElectric FuelType = "electric"
	FuelHybrid   FuelType = "hybrid"
)

func (f FuelType) Valid() bool {
	switch f {
	case FuelDiesel, FuelGasoline, FuelElectric, FuelHybrid:
		return true
	}
	return false
}

type FuelLog struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	DriverID        uint      `json:"driver" gorm:"index:idx_fuel_logs_driver_ts,priority:1;not null"`
	DriverName      string    `json:"driver_name" gorm:"-"`
	TripID          *uint     `json:"trip"`
	FuelType        FuelType  `json:"fuel_type" gorm:"default:diesel"`
	FuelAmount      Decimal   `json:"fuel_amount" gorm:"type:numeric(10,2)"`
	FuelCost        Decimal   `json:"fuel_cost" gorm:"type:numeric(10,2)"`
	CostPerGallon   Decimal   `json:"cost_per_gallon" gorm:"-"`
	OdometerReading Decimal   `json:"odometer_reading" gorm:"type:numeric(10,2)"`
	Location        string    `json:"location"`
	Timestamp       time.Time `json:"timestamp" gorm:"index:idx_fuel_logs_driver_ts,priority:2"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

func (FuelLog) TableName() string {
	return "fuel_logs"
}
