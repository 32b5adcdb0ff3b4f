// internal/models/trip.go
package models

import "time"

type TripStatus string

const (
	TripPending    TripStatus = "pending"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

func (s TripStatus) Valid() bool {
	switch s {
	case TripPending, TripInProgress, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// CanTransition allows pending -> in_progress and any live status to a
// terminal one. Terminal statuses never move.
func (s TripStatus) CanTransition(to TripStatus) bool {
	if s.Terminal() || !to.Valid() || s == to {
		return false
	}
	if to == TripPending {
		return false
	}
	if to == TripInProgress {
		return s == TripPending
	}
	return true
}

type Trip struct {
	ID             uint     `json:"id" gorm:"primaryKey"`
	DriverID       uint     `json:"driver" gorm:"index:idx_trips_driver_status,priority:1;not null"`
	DriverName     string   `json:"driver_name" gorm:"-"`
	VehicleID      string   `json:"vehicle_id"`
	Origin         string   `json:"origin"`
	Destination    string   `json:"destination"`
	PickupLat      *float64 `json:"pickup_lat"`
	PickupLng      *float64 `json:"pickup_lng"`
	DestinationLat *float64 `json:"destination_lat"`
	DestinationLng *float64 `json:"destination_lng"`

	Distance    Decimal    `json:"distance" gorm:"type:numeric(10,2)"`
	StartTime   time.Time  `json:"start_time" gorm:"index"`
	EndTime     *time.Time `json:"end_time"`
	PickupTime  Decimal    `json:"pickup_time" gorm:"type:numeric(4,2)"`
	DropoffTime Decimal    `json:"dropoff_time" gorm:"type:numeric(4,2)"`
	Status      TripStatus `json:"status" gorm:"index:idx_trips_driver_status,priority:2;default:pending"`
	Notes       string     `json:"notes"`

	TotalTripHours       Decimal  `json:"total_trip_hours" gorm:"-"`
	DriverHoursAfterTrip Decimal  `json:"driver_hours_after_trip" gorm:"-"`
	ComplianceErrors     []string `json:"compliance_errors" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Trip) TableName() string {
	return "trips"
}

// Pickup returns the pickup coordinates when both are known.
func (t Trip) Pickup() (LatLng, bool) {
	return pointOf(t.PickupLat, t.PickupLng)
}

// DestinationPoint returns the destination coordinates when both are known.
func (t Trip) DestinationPoint() (LatLng, bool) {
	return pointOf(t.DestinationLat, t.DestinationLng)
}

func pointOf(lat, lng *float64) (LatLng, bool) {
	if lat == nil || lng == nil {
		return LatLng{}, false
	}
	return LatLng{Lat: *lat, Lng: *lng}, true
}
