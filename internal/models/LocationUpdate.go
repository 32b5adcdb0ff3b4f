package models

import (
	"encoding/json"
	"time"
)

// LocationUpdate is one persisted position report for a trip.
type LocationUpdate struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TripID     uint      `json:"trip" gorm:"index:idx_location_trip_recorded,priority:1;not null"`
	DriverID   uint      `json:"driver" gorm:"index:idx_location_driver_recorded,priority:1;not null"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	RecordedAt time.Time `json:"recorded_at" gorm:"index:idx_location_trip_recorded,priority:2;index:idx_location_driver_recorded,priority:2"`
	CreatedAt  time.Time `json:"created_at"`
}

func (LocationUpdate) TableName() string {
	return "location_updates"
}

// LocationSample is the payload a tracker posts to /trips/{id}/location/.
type LocationSample struct {
	Lat        *float64   `json:"lat"`
	Lng        *float64   `json:"lng"`
	Accuracy   *float64   `json:"accuracy"`
	Speed      *float64   `json:"speed"`
	RecordedAt *time.Time `json:"recorded_at"`
}

const (
	EventLocationUpdate    = "location_update"
	EventLocationUpdateAlt = "location.update"
)

// LocationEvent is a message on the per-trip live channel.
type LocationEvent struct {
	Type       string      `json:"type"`
	TripID     json.Number `json:"trip_id,omitempty"`
	Lat        float64     `json:"lat"`
	Lng        float64     `json:"lng"`
	Accuracy   *float64    `json:"accuracy,omitempty"`
	Speed      *float64    `json:"speed,omitempty"`
	RecordedAt string      `json:"recorded_at,omitempty"`
	Arrived    bool        `json:"arrived"`
}

// IsLocationUpdate accepts both spellings of the location event type.
func (e LocationEvent) IsLocationUpdate() bool {
	return e.Type == EventLocationUpdate || e.Type == EventLocationUpdateAlt
}

func (e LocationEvent) Position() LatLng {
	return LatLng{Lat: e.Lat, Lng: e.Lng}
}
