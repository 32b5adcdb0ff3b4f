package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver_logbook/internal/controllers"
	"driver_logbook/internal/hos"
	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
	"driver_logbook/internal/repository"
	"driver_logbook/internal/routes"
)

type harness struct {
	t      *testing.T
	repo   *repository.Memory
	server *controllers.Server
	router *gin.Engine

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := &harness{t: t, repo: repository.NewMemory(), now: time.Now().UTC()}
	reg := prometheus.NewRegistry()
	h.server = controllers.NewServer(controllers.Options{
		Repo:       h.repo,
		Tokens:     middleware.NewTokenManager("test-secret", time.Hour, 24*time.Hour),
		Rules:      hos.DefaultRules(),
		Registerer: reg,
		Logger:     logrus.NewEntry(log),
		Now:        h.clock,
	})
	h.router = routes.SetupRouter(h.server, reg)
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *harness) login(username, password string) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/auth/login/", "", gin.H{"username": username, "password": password})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.AuthResponse](h.t, w).Access
}

// driver registers and logs in a driver, returning its token and id.
func (h *harness) driver(username string) (string, uint) {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/auth/register/", "", registration(username))
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[struct {
		Driver models.Driver `json:"driver"`
	}](h.t, w)
	return h.login(username, "s3cret-pass"), body.Driver.ID
}

func (h *harness) admin() string {
	h.t.Helper()
	require.NoError(h.t, h.server.SeedAdmin(context.Background(), "boss", "admin-pass"))
	return h.login("boss", "admin-pass")
}

func registration(username string) gin.H {
	return gin.H{
		"username":       username,
		"email":          username + "@example.com",
		"password":       "s3cret-pass",
		"password2":      "s3cret-pass",
		"first_name":     "Test",
		"last_name":      strings.ToUpper(username[:1]) + username[1:],
		"license_number": "LIC-" + username,
	}
}

func (h *harness) createTrip(token string, body gin.H) models.Trip {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/trips/", token, body)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Trip](h.t, w)
}

// seedCompleted stores a completed trip directly.
func (h *harness) seedCompleted(driverID uint, hours, miles float64, end time.Time) {
	h.t.Helper()
	start := end.Add(-time.Duration(hours * float64(time.Hour)))
	trip := models.Trip{
		DriverID: driverID, Origin: "A", Destination: "B",
		Distance: models.Decimal(miles), StartTime: start, EndTime: &end,
		Status: models.TripCompleted,
	}
	require.NoError(h.t, h.repo.CreateTrip(context.Background(), &trip))
}

func tripPath(id uint, action string) string {
	if action == "" {
		return fmt.Sprintf("/api/trips/%d/", id)
	}
	return fmt.Sprintf("/api/trips/%d/%s/", id, action)
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	body := registration("ann")
	body["password2"] = "different"
	w := h.do(http.MethodPost, "/api/auth/register/", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"password":["Password fields didn't match."]}`, w.Body.String())

	token, _ := h.driver("ann")
	assert.NotEmpty(t, token)

	w = h.do(http.MethodPost, "/api/auth/register/", "", registration("ann"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username")

	w = h.do(http.MethodPost, "/api/auth/login/", "", gin.H{"username": "ann", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "No active account")

	w = h.do(http.MethodGet, "/api/drivers/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/api/drivers/me/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.Driver](t, w)
	assert.Equal(t, "ann", me.Username)
	assert.Equal(t, "Test Ann", me.FullName)
	assert.Equal(t, 70.0, me.RemainingHours8Days.Float64())
	assert.Equal(t, models.ComplianceCompliant, me.ComplianceStatus)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	h := newHarness(t)
	h.driver("ann")
	w := h.do(http.MethodPost, "/api/auth/login/", "", gin.H{"username": "ann", "password": "s3cret-pass"})
	pair := decode[models.AuthResponse](t, w)

	w = h.do(http.MethodPost, "/api/auth/refresh/", "", gin.H{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[models.AuthResponse](t, w).Access)

	w = h.do(http.MethodPost, "/api/auth/refresh/", "", gin.H{"refresh": pair.Access})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTrip(t *testing.T) {
	h := newHarness(t)
	token, id := h.driver("ann")

	trip := h.createTrip(token, gin.H{"origin": "Boston", "destination": "New York", "distance": "215.5"})
	assert.Equal(t, models.TripInProgress, trip.Status)
	assert.Equal(t, id, trip.DriverID)
	assert.Equal(t, 215.5, trip.Distance.Float64())
	assert.Equal(t, 1.0, trip.PickupTime.Float64())
	assert.Equal(t, 1.0, trip.DropoffTime.Float64())
	assert.Equal(t, "Test Ann", trip.DriverName)
	assert.Empty(t, trip.ComplianceErrors)

	w := h.do(http.MethodPost, "/api/trips/", token, gin.H{"origin": "Boston", "destination": "New York"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"distance"`)

	w = h.do(http.MethodPost, "/api/trips/", token, gin.H{
		"origin": "Boston", "destination": "New York", "distance": 10, "pickup_lat": 42.3,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "lat_lng")
}

func TestCreateTripRequiresRefuel(t *testing.T) {
	h := newHarness(t)
	token, id := h.driver("ann")
	h.seedCompleted(id, 2, 600, h.clock().Add(-48*time.Hour))
	h.seedCompleted(id, 2, 400, h.clock().Add(-24*time.Hour))

	w := h.do(http.MethodPost, "/api/trips/", token, gin.H{"origin": "A", "destination": "B", "distance": 5})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"refuel":["Refueling required before starting new trip. Miles since last fuel: 1000.00"]}`,
		w.Body.String())

	w = h.do(http.MethodPost, "/api/fuel-logs/", token, gin.H{
		"fuel_amount": 50, "fuel_cost": 150, "odometer_reading": 12000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	h.createTrip(token, gin.H{"origin": "A", "destination": "B", "distance": 5})
}

func TestCompleteTrip(t *testing.T) {
	h := newHarness(t)
	token, _ := h.driver("ann")
	start := h.clock().Add(-3 * time.Hour)
	trip := h.createTrip(token, gin.H{
		"origin": "A", "destination": "B", "distance": 250, "start_time": start,
	})

	w := h.do(http.MethodPost, tripPath(trip.ID, "complete"), token, gin.H{"end_time": h.clock()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[models.Trip](t, w)
	assert.Equal(t, models.TripCompleted, done.Status)
	assert.Equal(t, 5.0, done.TotalTripHours.Float64())
	assert.Equal(t, 5.0, done.DriverHoursAfterTrip.Float64())

	me := decode[models.Driver](t, h.do(http.MethodGet, "/api/drivers/me/", token, nil))
	assert.Equal(t, 5.0, me.TotalHours8Days.Float64())
	assert.Equal(t, 65.0, me.RemainingHours8Days.Float64())
	assert.Equal(t, 250.0, me.MilesSinceLastFuel.Float64())

	w = h.do(http.MethodPost, tripPath(trip.ID, "complete"), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Trip is already completed"}`, w.Body.String())

	w = h.do(http.MethodPost, tripPath(trip.ID, "cancel"), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cannot cancel a completed trip"}`, w.Body.String())
}

func TestCompleteTripRefusesHoursViolation(t *testing.T) {
	h := newHarness(t)
	token, id := h.driver("ann")
	h.seedCompleted(id, 67, 100, h.clock().Add(-24*time.Hour))

	trip := h.createTrip(token, gin.H{
		"origin": "A", "destination": "B", "distance": 10,
		"start_time": h.clock().Add(-2 * time.Hour),
	})
	w := h.do(http.MethodPost, tripPath(trip.ID, "complete"), token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string][]string](t, w)
	require.Len(t, body["compliance_errors"], 1)
	assert.Contains(t, body["compliance_errors"][0], "exceed 70-hour limit")

	stored, err := h.repo.TripByID(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripInProgress, stored.Status)
}

func TestCancelTrip(t *testing.T) {
	h := newHarness(t)
	token, _ := h.driver("ann")
	trip := h.createTrip(token, gin.H{"origin": "A", "destination": "B", "distance": 10})

	w := h.do(http.MethodPost, tripPath(trip.ID, "cancel"), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TripCancelled, decode[models.Trip](t, w).Status)

	w = h.do(http.MethodPost, tripPath(trip.ID, "complete"), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTripsAreScopedToOwner(t *testing.T) {
	h := newHarness(t)
	ann, _ := h.driver("ann")
	bob, _ := h.driver("bob")
	admin := h.admin()
	trip := h.createTrip(ann, gin.H{"origin": "A", "destination": "B", "distance": 10})
	h.createTrip(bob, gin.H{"origin": "C", "destination": "D", "distance": 10})

	w := h.do(http.MethodPost, tripPath(trip.ID, "cancel"), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	page := decode[models.Page[models.Trip]](t, h.do(http.MethodGet, "/api/trips/", bob, nil))
	assert.Equal(t, 1, page.Count)
	page = decode[models.Page[models.Trip]](t, h.do(http.MethodGet, "/api/trips/", admin, nil))
	assert.Equal(t, 2, page.Count)
	page = decode[models.Page[models.Trip]](t, h.do(http.MethodGet, "/api/trips/?limit=1", admin, nil))
	assert.Equal(t, 1, page.Count)
	page = decode[models.Page[models.Trip]](t, h.do(http.MethodGet, "/api/trips/active/", ann, nil))
	assert.Equal(t, 1, page.Count)

	w = h.do(http.MethodGet, "/api/trips/?status=bogus", ann, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	drivers := decode[models.Page[models.Driver]](t, h.do(http.MethodGet, "/api/drivers/", ann, nil))
	require.Len(t, drivers.Results, 1)
	assert.Equal(t, "ann", drivers.Results[0].Username)
	drivers = decode[models.Page[models.Driver]](t, h.do(http.MethodGet, "/api/drivers/", admin, nil))
	assert.Len(t, drivers.Results, 3)
}

func TestSetPickupAndDestination(t *testing.T) {
	h := newHarness(t)
	token, _ := h.driver("ann")
	trip := h.createTrip(token, gin.H{"origin": "A", "destination": "B", "distance": 10})

	w := h.do(http.MethodPatch, tripPath(trip.ID, "pickup"), token, gin.H{"lat": 42.36})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"lat_lng":["Both lat and lng must be provided together."]}`, w.Body.String())

	w = h.do(http.MethodPatch, tripPath(trip.ID, "pickup"), token, gin.H{
		"name": "Home", "address": "1 Main St", "lat": 42.36, "lng": -71.06,
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Trip](t, w)
	assert.Equal(t, "1 Main St", updated.Origin)
	require.NotNil(t, updated.PickupLat)
	assert.Equal(t, 42.36, *updated.PickupLat)

	w = h.do(http.MethodPatch, tripPath(trip.ID, "destination"), token, gin.H{"name": "Depot"})
	require.Equal(t, http.StatusOK, w.Code)
	updated = decode[models.Trip](t, w)
	assert.Equal(t, "Depot", updated.Destination)
	assert.Nil(t, updated.DestinationLat)
}

func TestPostLocation(t *testing.T) {
	h := newHarness(t)
	ann, _ := h.driver("ann")
	bob, _ := h.driver("bob")
	trip := h.createTrip(ann, gin.H{
		"origin": "A", "destination": "B", "distance": 10,
		"destination_lat": 40.7128, "destination_lng": -74.0060,
	})
	path := tripPath(trip.ID, "location")

	w := h.do(http.MethodPost, path, ann, gin.H{"lat": 40.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"lat and lng are required"}`, w.Body.String())

	w = h.do(http.MethodPost, path, bob, gin.H{"lat": 40.0, "lng": -74.0})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, path, ann, gin.H{"lat": 40.0, "lng": -74.0, "speed": 12.5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loc := decode[models.LocationUpdate](t, w)
	assert.Equal(t, trip.ID, loc.TripID)
	require.NotNil(t, loc.Speed)
	assert.Equal(t, 12.5, *loc.Speed)

	w = h.do(http.MethodPost, path, ann, gin.H{"lat": 40.1, "lng": -74.0})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())

	h.advance(time.Second)
	w = h.do(http.MethodPost, path, ann, gin.H{"lat": 40.71281, "lng": -74.00601})
	require.Equal(t, http.StatusCreated, w.Code)

	stored, err := h.repo.TripByID(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripCompleted, stored.Status)
	assert.NotNil(t, stored.EndTime)

	last := decode[models.LocationUpdate](t, h.do(http.MethodGet, path, ann, nil))
	assert.InDelta(t, 40.71281, last.Lat, 1e-9)
}

func TestTripSocketReceivesLocationEvents(t *testing.T) {
	h := newHarness(t)
	token, _ := h.driver("ann")
	trip := h.createTrip(token, gin.H{
		"origin": "A", "destination": "B", "distance": 10,
		"destination_lat": 40.7128, "destination_lng": -74.0060,
	})

	srv := httptest.NewServer(h.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/ws/trips/%d/", trip.ID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.server.Hub().Subscribers(trip.ID) == 1 },
		time.Second, 10*time.Millisecond)

	w := h.do(http.MethodPost, tripPath(trip.ID, "location"), token, gin.H{"lat": 40.7128, "lng": -74.0060})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.LocationEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.True(t, event.IsLocationUpdate())
	assert.Equal(t, fmt.Sprint(trip.ID), event.TripID.String())
	assert.True(t, event.Arrived)
	assert.Equal(t, 40.7128, event.Lat)

	_, _, err = websocket.DefaultDialer.Dial(wsURL+"?token=garbage", nil)
	assert.Error(t, err)
}

func TestFuelLogs(t *testing.T) {
	h := newHarness(t)
	token, _ := h.driver("ann")

	w := h.do(http.MethodPost, "/api/fuel-logs/", token, gin.H{"fuel_amount": 0, "fuel_cost": 10, "odometer_reading": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "fuel_amount")

	w = h.do(http.MethodPost, "/api/fuel-logs/", token, gin.H{
		"fuel_amount": "50", "fuel_cost": "150", "odometer_reading": "12000.5", "location": "Exit 12",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode[models.FuelLog](t, w)
	assert.Equal(t, models.FuelDiesel, entry.FuelType)
	assert.Equal(t, 3.0, entry.CostPerGallon.Float64())

	page := decode[models.Page[models.FuelLog]](t, h.do(http.MethodGet, "/api/fuel-logs/", token, nil))
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "Test Ann", page.Results[0].DriverName)
}

func TestDashboardStats(t *testing.T) {
	h := newHarness(t)
	ann, annID := h.driver("ann")
	_, bobID := h.driver("bob")
	admin := h.admin()

	w := h.do(http.MethodGet, "/api/dashboard/stats/", ann, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Admin access required"}`, w.Body.String())

	h.createTrip(ann, gin.H{"origin": "A", "destination": "B", "distance": 10})
	h.seedCompleted(bobID, 71, 1200, h.clock())
	h.seedCompleted(annID, 1, 10, h.clock().Add(-72*time.Hour))

	w = h.do(http.MethodGet, "/api/dashboard/stats/", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.DashboardStats](t, w)
	assert.Equal(t, 3, stats.TotalDrivers)
	assert.Equal(t, 1, stats.ActiveTrips)
	assert.Equal(t, 1, stats.CompletedTripsToday)
	assert.Equal(t, 1, stats.ComplianceViolations)
	assert.Equal(t, 1, stats.DriversNeedingRefuel)
}

func TestGenerateComplianceReport(t *testing.T) {
	h := newHarness(t)
	ann, annID := h.driver("ann")
	bob, _ := h.driver("bob")
	day := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	h.seedCompleted(annID, 3, 600, day)
	h.seedCompleted(annID, 2, 500, day.Add(24*time.Hour))
	for _, ts := range []time.Time{day.Add(-12 * time.Hour), day.Add(48 * time.Hour)} {
		l := models.FuelLog{DriverID: annID, FuelAmount: 10, FuelCost: 30, Timestamp: ts}
		require.NoError(t, h.repo.CreateFuelLog(context.Background(), &l))
	}

	req := gin.H{"driver_id": annID, "date_start": "2026-03-01", "date_end": "2026-03-31"}
	w := h.do(http.MethodPost, "/api/compliance-reports/generate/", bob, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/api/compliance-reports/generate/", ann, gin.H{"driver_id": annID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/compliance-reports/generate/", ann, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	report := decode[models.ComplianceReport](t, w)
	assert.Equal(t, 2, report.TripCount)
	assert.Equal(t, 5.0, report.TotalHours.Float64())
	assert.Equal(t, 1100.0, report.TotalMiles.Float64())
	assert.False(t, report.LimitExceeded)
	assert.Equal(t, 1, report.RefuelViolations)

	page := decode[models.Page[models.ComplianceReport]](t, h.do(http.MethodGet, "/api/compliance-reports/", ann, nil))
	assert.Equal(t, 1, page.Count)
	page = decode[models.Page[models.ComplianceReport]](t, h.do(http.MethodGet, "/api/compliance-reports/", bob, nil))
	assert.Equal(t, 0, page.Count)
}

func TestRouteAndSearch(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/route/", "", gin.H{
		"origin":      gin.H{"lat": 40.7, "lng": -74.0},
		"destination": gin.H{"lat": 42.3, "lng": -71.0},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	route := decode[models.Route](t, w)
	assert.Equal(t, "straight_line", route.Provider)
	assert.Greater(t, route.DistanceM, 300000.0)
	assert.Greater(t, route.DurationS, 0.0)
	path, err := route.Path()
	require.NoError(t, err)
	assert.Len(t, path, 17)
	assert.InDelta(t, 42.3, path[len(path)-1].Lat, 1e-9)

	w = h.do(http.MethodGet, "/api/search/address/", "", nil)
	assert.JSONEq(t, `{"error":"q is required"}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/search/address/?q=bost", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	places := decode[[]models.Place](t, w)
	require.Len(t, places, 1)
	assert.Equal(t, "Boston", places[0].PlaceName)

	w = h.do(http.MethodGet, "/api/search/reverse/?lat=42.35&lng=-71.06", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Boston", decode[models.Place](t, w).PlaceName)

	w = h.do(http.MethodGet, "/api/search/reverse/?lat=0&lng=0", "", nil)
	assert.Equal(t, "0.00000,0.00000", decode[models.Place](t, w).PlaceName)

	w = h.do(http.MethodGet, "/api/search/reverse/?lat=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchIsRateLimited(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/search/address/?q=a", "", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodGet, "/api/search/address/?q=a", "", nil).Code)
	h.advance(2 * time.Second)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/search/address/?q=a", "", nil).Code)
}

func TestMetricsExposeLocationCounters(t *testing.T) {
	h := newHarness(t)
	token, _ := h.driver("ann")
	trip := h.createTrip(token, gin.H{"origin": "A", "destination": "B", "distance": 10})
	h.do(http.MethodPost, tripPath(trip.ID, "location"), token, gin.H{"lat": 1, "lng": 1})
	h.do(http.MethodPost, tripPath(trip.ID, "location"), token, gin.H{"lat": 1, "lng": 1})

	w := h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "logbook_api_locations_accepted_total 1")
	assert.Contains(t, w.Body.String(), "logbook_api_locations_rate_limited_total 1")
	assert.Contains(t, w.Body.String(), `logbook_api_trip_transitions_total{status="in_progress"} 1`)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}
