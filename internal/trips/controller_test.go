package trips

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"driver_logbook/internal/apiclient"
	"driver_logbook/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type recorded struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	trips    []models.Trip
	route    string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Body: body})
	trips := append([]models.Trip(nil), f.trips...)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/trips/":
		_ = json.NewEncoder(w).Encode(models.NewPage(trips))
	case r.Method == http.MethodPost && r.URL.Path == "/api/trips/":
		_ = json.NewEncoder(w).Encode(models.Trip{ID: 10, Status: models.TripInProgress})
	case r.Method == http.MethodPost && r.URL.Path == "/api/route/":
		w.Write([]byte(f.route))
	case r.Method == http.MethodGet && r.URL.Path == "/api/search/reverse/":
		w.Write([]byte(`{"place_name": "Depot", "address": "1 Yard Rd", "lat": 1, "lng": 2}`))
	default:
		_ = json.NewEncoder(w).Encode(models.Trip{ID: 1, Status: models.TripCompleted, TotalTripHours: 7})
	}
}

func (f *fakeAPI) calls(method, path string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) RefreshUser(context.Context) (*models.Driver, error) {
	f.calls++
	return &models.Driver{}, nil
}

type stubGeocoder struct {
	place models.Place
	err   error
}

func (s stubGeocoder) ReverseGeocode(context.Context, models.LatLng) (models.Place, error) {
	return s.place, s.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newController(t *testing.T, api *fakeAPI, cfg Config) *Controller {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	cfg.API = apiclient.New(apiclient.Config{BaseURL: srv.URL, Logger: quietLogger()})
	cfg.Logger = quietLogger()
	cfg.Now = func() time.Time { return fixedNow }
	return NewController(cfg)
}

func TestFormRequestCoercesNumbers(t *testing.T) {
	req := Form{
		Origin:      " Chicago ",
		Distance:    "250",
		PickupTime:  "",
		DropoffTime: "soon",
		StartTime:   "2024-03-01T10:00:00+02:00",
		Pickup:      &models.LatLng{Lat: 41.8, Lng: -87.6},
	}.Request(fixedNow)

	assert.Equal(t, "Chicago", req.Origin)
	require.NotNil(t, req.Distance)
	assert.Equal(t, 250.0, *req.Distance)
	assert.Nil(t, req.PickupTime)
	assert.Nil(t, req.DropoffTime)
	assert.Equal(t, "2024-03-01T08:00:00Z", req.StartTime)
	require.NotNil(t, req.PickupLat)
	assert.Equal(t, 41.8, *req.PickupLat)
	assert.Nil(t, req.DestinationLat)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pickup_time":null`)
	assert.NotContains(t, string(raw), "destination_lat")
}

func TestCanonicalStartTime(t *testing.T) {
	assert.Equal(t, "2024-05-01T12:00:00Z", CanonicalStartTime("  ", fixedNow))
	assert.Equal(t, "not a date", CanonicalStartTime("not a date", fixedNow))
	want := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local).UTC().Format(time.RFC3339)
	assert.Equal(t, want, CanonicalStartTime("2024-03-01T09:30", fixedNow))
}

func TestCreateTripReloadsList(t *testing.T) {
	api := &fakeAPI{trips: []models.Trip{{ID: 10, Status: models.TripInProgress}}}
	c := newController(t, api, Config{})

	trip, err := c.CreateTrip(context.Background(), Form{Origin: "A", Destination: "B", Distance: "250"})
	require.NoError(t, err)
	assert.Equal(t, uint(10), trip.ID)

	posts := api.calls(http.MethodPost, "/api/trips/")
	require.Len(t, posts, 1)
	assert.Equal(t, 250.0, posts[0].Body["distance"])
	assert.Equal(t, "2024-05-01T12:00:00Z", posts[0].Body["start_time"])
	assert.Len(t, api.calls(http.MethodGet, "/api/trips/"), 1)
	assert.Len(t, c.Trips(), 1)
}

func TestSetPickupWithoutTripOnlyResolves(t *testing.T) {
	api := &fakeAPI{}
	c := newController(t, api, Config{Geocoder: stubGeocoder{}})

	loc, err := c.SetPickup(context.Background(), 0, models.LatLng{Lat: 40.712776, Lng: -74.005974})
	require.NoError(t, err)
	assert.Equal(t, "40.71278,-74.00597", loc.Name)
	assert.Equal(t, loc.Name, loc.Address)
	assert.Empty(t, api.requests)
}

func TestSetDestinationPatchesTrip(t *testing.T) {
	api := &fakeAPI{}
	c := newController(t, api, Config{})

	loc, err := c.SetDestination(context.Background(), 4, models.LatLng{Lat: 1, Lng: 2})
	require.NoError(t, err)
	assert.Equal(t, "Depot", loc.Name)

	patches := api.calls(http.MethodPatch, "/api/trips/4/destination/")
	require.Len(t, patches, 1)
	assert.Equal(t, map[string]any{"name": "Depot", "address": "1 Yard Rd", "lat": 1.0, "lng": 2.0}, patches[0].Body)
}

func TestSetPickupGeocodeFailureSkipsPatch(t *testing.T) {
	api := &fakeAPI{}
	c := newController(t, api, Config{Geocoder: stubGeocoder{err: errors.New("offline")}})

	_, err := c.SetPickup(context.Background(), 4, models.LatLng{Lat: 1, Lng: 2})
	require.Error(t, err)
	assert.Empty(t, api.calls(http.MethodPatch, "/api/trips/4/pickup/"))
}

func TestPreviewRoute(t *testing.T) {
	api := &fakeAPI{route: `{"geometry": {"type": "LineString", "coordinates": [[-74.0, 40.7], [-71.0, 42.3]]},
		"steps": [], "distance_m": 300000, "duration_s": 12000, "provider": "straight_line"}`}
	c := newController(t, api, Config{})

	_, err := c.PreviewRoute(context.Background(), "New York", "42.3,-71.0")
	assert.ErrorIs(t, err, ErrCoordinatesRequired)
	assert.Empty(t, api.calls(http.MethodPost, "/api/route/"))

	route, err := c.PreviewRoute(context.Background(), "40.7,-74.0", "42.3,-71.0")
	require.NoError(t, err)
	assert.Equal(t, "straight_line", route.Provider)
	path, err := route.Path()
	require.NoError(t, err)
	assert.Equal(t, []models.LatLng{{Lat: 40.7, Lng: -74.0}, {Lat: 42.3, Lng: -71.0}}, path)

	posts := api.calls(http.MethodPost, "/api/route/")
	require.Len(t, posts, 1)
	assert.Equal(t, map[string]any{"lat": 40.7, "lng": -74.0}, posts[0].Body["origin"])
}

func TestTerminalTripsRejectTransitions(t *testing.T) {
	api := &fakeAPI{trips: []models.Trip{
		{ID: 1, Status: models.TripCompleted},
		{ID: 2, Status: models.TripCancelled},
	}}
	confirmed := 0
	c := newController(t, api, Config{Confirmer: ConfirmFunc(func(context.Context, string) bool {
		confirmed++
		return true
	})})
	require.NoError(t, c.Reload(context.Background()))
	before := c.Trips()

	_, err := c.CompleteTrip(context.Background(), 1)
	assert.ErrorIs(t, err, ErrTripTerminal)
	_, err = c.CancelTrip(context.Background(), 2)
	assert.ErrorIs(t, err, ErrTripTerminal)

	assert.Zero(t, confirmed)
	assert.Empty(t, api.calls(http.MethodPost, "/api/trips/1/complete/"))
	assert.Empty(t, api.calls(http.MethodPost, "/api/trips/2/cancel/"))
	assert.Equal(t, before, c.Trips())
}

func TestCompleteTripRefreshesDriverAndList(t *testing.T) {
	api := &fakeAPI{trips: []models.Trip{{ID: 1, Status: models.TripInProgress}}}
	refresher := &fakeRefresher{}
	c := newController(t, api, Config{Refresher: refresher})
	require.NoError(t, c.Reload(context.Background()))

	trip, err := c.CompleteTrip(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.TripCompleted, trip.Status)

	posts := api.calls(http.MethodPost, "/api/trips/1/complete/")
	require.Len(t, posts, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", posts[0].Body["end_time"])
	assert.Equal(t, 1, refresher.calls)
	assert.Len(t, api.calls(http.MethodGet, "/api/trips/"), 2)
}

func TestCancelTripRequiresConfirmation(t *testing.T) {
	api := &fakeAPI{trips: []models.Trip{{ID: 3, Status: models.TripPending}}}
	answer := false
	var prompt string
	c := newController(t, api, Config{Confirmer: ConfirmFunc(func(_ context.Context, p string) bool {
		prompt = p
		return answer
	})})

	_, err := c.CancelTrip(context.Background(), 3)
	assert.ErrorIs(t, err, ErrCancelDeclined)
	assert.NotEmpty(t, prompt)
	assert.Empty(t, api.calls(http.MethodPost, "/api/trips/3/cancel/"))

	answer = true
	_, err = c.CancelTrip(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, api.calls(http.MethodPost, "/api/trips/3/cancel/"), 1)
}

func TestSendLocationPostsSample(t *testing.T) {
	api := &fakeAPI{}
	c := newController(t, api, Config{})
	lat, lng := 1.5, 2.5
	require.NoError(t, c.SendLocation(context.Background(), 9, models.LocationSample{Lat: &lat, Lng: &lng}))

	posts := api.calls(http.MethodPost, "/api/trips/9/location/")
	require.Len(t, posts, 1)
	assert.Equal(t, 1.5, posts[0].Body["lat"])
}
