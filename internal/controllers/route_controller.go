package controllers

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"driver_logbook/internal/geo"
	"driver_logbook/internal/models"
)

const (
	routeProvider   = "straight_line"
	routeVertices   = 16
	searchLimit     = 7
	reverseRadiusKm = 50
)

// Average speeds in meters per second for each route profile.
var profileSpeeds = map[string]float64{
	"driving": 13.4,
	"cycling": 4.5,
	"walking": 1.4,
}

// place is an entry of the offline gazetteer.
type place struct {
	Name    string
	Address string
	At      models.LatLng
}

var gazetteer = []place{
	{"New York", "New York, NY, USA", models.LatLng{Lat: 40.7128, Lng: -74.0060}},
	{"Boston", "Boston, MA, USA", models.LatLng{Lat: 42.3601, Lng: -71.0589}},
	{"Philadelphia", "Philadelphia, PA, USA", models.LatLng{Lat: 39.9526, Lng: -75.1652}},
	{"Washington", "Washington, DC, USA", models.LatLng{Lat: 38.9072, Lng: -77.0369}},
	{"Baltimore", "Baltimore, MD, USA", models.LatLng{Lat: 39.2904, Lng: -76.6122}},
	{"Pittsburgh", "Pittsburgh, PA, USA", models.LatLng{Lat: 40.4406, Lng: -79.9959}},
	{"Chicago", "Chicago, IL, USA", models.LatLng{Lat: 41.8781, Lng: -87.6298}},
	{"Detroit", "Detroit, MI, USA", models.LatLng{Lat: 42.3314, Lng: -83.0458}},
	{"Cleveland", "Cleveland, OH, USA", models.LatLng{Lat: 41.4993, Lng: -81.6944}},
	{"Atlanta", "Atlanta, GA, USA", models.LatLng{Lat: 33.7490, Lng: -84.3880}},
	{"Miami", "Miami, FL, USA", models.LatLng{Lat: 25.7617, Lng: -80.1918}},
	{"Dallas", "Dallas, TX, USA", models.LatLng{Lat: 32.7767, Lng: -96.7970}},
	{"Houston", "Houston, TX, USA", models.LatLng{Lat: 29.7604, Lng: -95.3698}},
	{"Denver", "Denver, CO, USA", models.LatLng{Lat: 39.7392, Lng: -104.9903}},
	{"Phoenix", "Phoenix, AZ, USA", models.LatLng{Lat: 33.4484, Lng: -112.0740}},
	{"Los Angeles", "Los Angeles, CA, USA", models.LatLng{Lat: 34.0522, Lng: -118.2437}},
	{"San Francisco", "San Francisco, CA, USA", models.LatLng{Lat: 37.7749, Lng: -122.4194}},
	{"Seattle", "Seattle, WA, USA", models.LatLng{Lat: 47.6062, Lng: -122.3321}},
	{"Nairobi", "Nairobi, Kenya", models.LatLng{Lat: -1.2921, Lng: 36.8219}},
	{"Mombasa", "Mombasa, Kenya", models.LatLng{Lat: -4.0435, Lng: 39.6682}},
}

// Route previews a straight-line path between two points.
func (s *Server) Route(c *gin.Context) {
	var input models.RouteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination are required"})
		return
	}
	if !input.Origin.Valid() || !input.Destination.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}
	route, err := straightRoute(input)
	if err != nil {
		s.internalError(c, err, "could not build route")
		return
	}
	c.JSON(http.StatusOK, route)
}

func straightRoute(req models.RouteRequest) (models.Route, error) {
	speed, ok := profileSpeeds[req.Profile]
	if !ok {
		speed = profileSpeeds["driving"]
	}
	points := make([]models.LatLng, 0, routeVertices+1)
	for i := 0; i <= routeVertices; i++ {
		points = append(points, geo.Interpolate(req.Origin, req.Destination, float64(i)/routeVertices))
	}
	ls, err := geo.LineString(points...)
	if err != nil {
		return models.Route{}, err
	}
	geometry, err := geo.EncodeLineString(ls)
	if err != nil {
		return models.Route{}, fmt.Errorf("encode route: %w", err)
	}

	distance := math.Round(geo.Length(ls)*10) / 10
	duration := math.Round(distance/speed*10) / 10
	heading := geo.CompassPoint(geo.Bearing(req.Origin, req.Destination))
	return models.Route{
		Geometry: geometry,
		Steps: []models.RouteStep{
			{Instruction: "Head " + heading, DistanceM: distance, DurationS: duration},
			{Instruction: "Arrive at destination"},
		},
		DistanceM: distance,
		DurationS: duration,
		Provider:  routeProvider,
	}, nil
}

// searchLimiter allows 5 address searches per 10 seconds for each client
// address.
type searchLimiter struct {
	limiters map[string]*rate.Limiter
}

func (s *Server) allowSearch(ip string) bool {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()
	if s.search.limiters == nil {
		s.search.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := s.search.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Every(2*time.Second), 5)
		s.search.limiters[ip] = l
	}
	return l.AllowN(s.now(), 1)
}

// SearchAddress matches the query against the offline gazetteer.
func (s *Server) SearchAddress(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if !s.allowSearch(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	needle := strings.ToLower(q)
	results := make([]models.Place, 0)
	for i, p := range gazetteer {
		if !strings.Contains(strings.ToLower(p.Address), needle) {
			continue
		}
		results = append(results, toPlace(i, p))
		if len(results) == searchLimit {
			break
		}
	}
	c.JSON(http.StatusOK, results)
}

// ReverseGeocode names the gazetteer entry nearest to a point, or echoes
// the coordinates when nothing is close.
func (s *Server) ReverseGeocode(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}
	at := models.LatLng{Lat: lat, Lng: lng}
	if !at.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	type candidate struct {
		place place
		dist  float64
	}
	candidates := make([]candidate, 0, len(gazetteer))
	for _, p := range gazetteer {
		candidates = append(candidates, candidate{p, geo.Distance(at, p.At)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	result := models.Place{PlaceName: at.String(), Address: at.String(), Lat: &lat, Lng: &lng}
	if len(candidates) > 0 && candidates[0].dist <= reverseRadiusKm*1000 {
		result.PlaceName = candidates[0].place.Name
		result.Address = candidates[0].place.Address
	}
	c.JSON(http.StatusOK, result)
}

func toPlace(i int, p place) models.Place {
	lat, lng := p.At.Lat, p.At.Lng
	return models.Place{
		ID:        "place." + strconv.Itoa(i+1),
		PlaceName: p.Name,
		Address:   p.Address,
		Lat:       &lat,
		Lng:       &lng,
	}
}
