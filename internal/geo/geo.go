// Package geo holds the spherical math and geometry helpers shared by the
// tracker, the route preview and the dev API.
package geo

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"driver_logbook/internal/models"
)

// EarthRadiusMeters is the mean radius used by Distance.
const EarthRadiusMeters = 6371000

const MetersPerMile = 1609.344

// Distance calculates the great-circle distance in meters.
func Distance(a, b models.LatLng) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Bearing calculates the initial bearing in degrees from a to b.
func Bearing(a, b models.LatLng) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	deltaLon := toRadians(b.Lng - a.Lng)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

// Interpolate returns the point a fraction t of the way from a to b.
func Interpolate(a, b models.LatLng, t float64) models.LatLng {
	return models.LatLng{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// LineString builds an XY line string in lng,lat order.
func LineString(points ...models.LatLng) (*geom.LineString, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("line string needs at least 2 points, got %d", len(points))
	}
	coords := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		coords = append(coords, geom.Coord{p.Lng, p.Lat})
	}
	return geom.NewLineString(geom.XY).SetCoords(coords)
}

// EncodeLineString converts a line string to its GeoJSON geometry.
func EncodeLineString(ls *geom.LineString) (*gjson.Geometry, error) {
	return gjson.Encode(ls)
}

// Length sums the great-circle length of a line string in meters.
func Length(ls *geom.LineString) float64 {
	var total float64
	coords := ls.Coords()
	for i := 1; i < len(coords); i++ {
		total += Distance(
			models.LatLng{Lat: coords[i-1].Y(), Lng: coords[i-1].X()},
			models.LatLng{Lat: coords[i].Y(), Lng: coords[i].X()},
		)
	}
	return total
}

// CompassPoint names the 8-wind direction of a bearing.
func CompassPoint(bearing float64) string {
	points := []string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}
	idx := int(math.Round(math.Mod(bearing+360, 360)/45)) % len(points)
	return points[idx]
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
