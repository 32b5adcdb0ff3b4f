package models

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
)

// RouteRequest is the body of POST /route/.
type RouteRequest struct {
	Origin      LatLng `json:"origin" binding:"required"`
	Destination LatLng `json:"destination" binding:"required"`
	Profile     string `json:"profile,omitempty"`
}

type RouteStep struct {
	Instruction string  `json:"instruction"`
	DistanceM   float64 `json:"distance_m"`
	DurationS   float64 `json:"duration_s"`
}

// Route is a previewed path between two points. Geometry is a GeoJSON
// LineString in lng,lat order.
type Route struct {
	Geometry  *gjson.Geometry `json:"geometry"`
	Steps     []RouteStep     `json:"steps"`
	DistanceM float64         `json:"distance_m"`
	DurationS float64         `json:"duration_s"`
	Provider  string          `json:"provider"`
}

var ErrNoGeometry = errors.New("route has no geometry")

// LineString decodes the route geometry.
func (r Route) LineString() (*geom.LineString, error) {
	if r.Geometry == nil {
		return nil, ErrNoGeometry
	}
	g, err := r.Geometry.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode route geometry: %w", err)
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("route geometry is %T, want LineString", g)
	}
	return ls, nil
}

// Path returns the route vertices as lat/lng points.
func (r Route) Path() ([]LatLng, error) {
	ls, err := r.LineString()
	if err != nil {
		return nil, err
	}
	coords := ls.Coords()
	path := make([]LatLng, 0, len(coords))
	for _, c := range coords {
		path = append(path, LatLng{Lat: c.Y(), Lng: c.X()})
	}
	return path, nil
}
