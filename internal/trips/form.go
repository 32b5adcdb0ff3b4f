package trips

import (
	"strconv"
	"strings"
	"time"

	"driver_logbook/internal/models"
)

// Form is the trip entry as typed by the user. Numeric fields are text and
// coerced on submit.
type Form struct {
	VehicleID   string
	Origin      string
	Destination string
	Distance    string
	PickupTime  string
	DropoffTime string
	StartTime   string
	Notes       string

	Pickup           *models.LatLng
	DestinationPoint *models.LatLng
}

// CreateTripRequest is the body of POST /trips/.
type CreateTripRequest struct {
	VehicleID      string   `json:"vehicle_id"`
	Origin         string   `json:"origin"`
	Destination    string   `json:"destination"`
	Distance       *float64 `json:"distance"`
	PickupTime     *float64 `json:"pickup_time"`
	DropoffTime    *float64 `json:"dropoff_time"`
	StartTime      string   `json:"start_time"`
	Notes          string   `json:"notes"`
	PickupLat      *float64 `json:"pickup_lat,omitempty"`
	PickupLng      *float64 `json:"pickup_lng,omitempty"`
	DestinationLat *float64 `json:"destination_lat,omitempty"`
	DestinationLng *float64 `json:"destination_lng,omitempty"`
}

var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Request builds the creation payload. Blank or unparsable numbers become
// null; a blank start time means now.
func (f Form) Request(now time.Time) CreateTripRequest {
	req := CreateTripRequest{
		VehicleID:   strings.TrimSpace(f.VehicleID),
		Origin:      strings.TrimSpace(f.Origin),
		Destination: strings.TrimSpace(f.Destination),
		Distance:    ParseNumber(f.Distance),
		PickupTime:  ParseNumber(f.PickupTime),
		DropoffTime: ParseNumber(f.DropoffTime),
		StartTime:   CanonicalStartTime(f.StartTime, now),
		Notes:       f.Notes,
	}
	if f.Pickup != nil {
		req.PickupLat, req.PickupLng = ptr(f.Pickup.Lat), ptr(f.Pickup.Lng)
	}
	if f.DestinationPoint != nil {
		req.DestinationLat, req.DestinationLng = ptr(f.DestinationPoint.Lat), ptr(f.DestinationPoint.Lng)
	}
	return req
}

func ParseNumber(s string) *float64 {
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

// CanonicalStartTime renders a typed start time as RFC 3339 UTC. Times
// without a zone are read as local. Text that matches no layout is passed
// through so the server can report it.
func CanonicalStartTime(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC().Format(time.RFC3339)
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

func ptr(v float64) *float64 {
	return &v
}
