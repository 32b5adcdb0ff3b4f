// Package trips drives the trip lifecycle from the client side: creating
// trips, resolving pickup and destination, previewing routes, and the
// terminal complete/cancel transitions.
package trips

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"driver_logbook/internal/apiclient"
	"driver_logbook/internal/cache"
	"driver_logbook/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	ErrCoordinatesRequired = errors.New(`enter origin and destination as "lat,lng" coordinates (for example "40.7128,-74.0060") to preview a route`)
	ErrTripTerminal        = errors.New("trip is already completed or cancelled")
	ErrCancelDeclined      = errors.New("cancellation not confirmed")
)

const cancelPrompt = "Are you sure you want to cancel this trip?"

type Config struct {
	API       *apiclient.Client
	Geocoder  Geocoder
	Router    Router
	Confirmer Confirmer
	Refresher Refresher
	Logger    *logrus.Entry
	Now       func() time.Time
}

type Controller struct {
	api       *apiclient.Client
	geocoder  Geocoder
	router    Router
	confirmer Confirmer
	refresher Refresher
	log       *logrus.Entry
	now       func() time.Time

	trips *cache.Collection[models.Trip]
}

func NewController(cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		api:       cfg.API,
		geocoder:  cfg.Geocoder,
		router:    cfg.Router,
		confirmer: cfg.Confirmer,
		refresher: cfg.Refresher,
		log:       log.WithField("component", "trips"),
		now:       now,
	}
	if c.geocoder == nil {
		c.geocoder = APIGeocoder{API: cfg.API}
	}
	if c.router == nil {
		c.router = APIRouter{API: cfg.API}
	}
	c.trips = cache.NewCollection("trips", c.fetchTrips, log)
	return c
}

func (c *Controller) fetchTrips(ctx context.Context) ([]models.Trip, error) {
	page, err := apiclient.Get[models.Page[models.Trip]](ctx, c.api, "/trips/")
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Reload replaces the cached trip list. A failure empties the list.
func (c *Controller) Reload(ctx context.Context) error {
	return c.trips.Reload(ctx)
}

func (c *Controller) Trips() []models.Trip {
	return c.trips.Items()
}

func (c *Controller) Trip(id uint) (models.Trip, bool) {
	return c.trips.Find(func(t models.Trip) bool { return t.ID == id })
}

// CreateTrip submits the form and reloads the list on success.
func (c *Controller) CreateTrip(ctx context.Context, form Form) (models.Trip, error) {
	req := form.Request(c.now())
	trip, err := apiclient.Post[models.Trip](ctx, c.api, "/trips/", req)
	if err != nil {
		return models.Trip{}, err
	}
	c.log.WithFields(logrus.Fields{"trip_id": trip.ID, "status": trip.Status}).Info("Trip created")
	c.reloadQuietly(ctx)
	return trip, nil
}

// SetPickup names the point and, when the trip already exists, stores it on
// the server. The resolved location is returned either way.
func (c *Controller) SetPickup(ctx context.Context, tripID uint, p models.LatLng) (models.TripLocation, error) {
	return c.setLocation(ctx, tripID, p, "pickup")
}

func (c *Controller) SetDestination(ctx context.Context, tripID uint, p models.LatLng) (models.TripLocation, error) {
	return c.setLocation(ctx, tripID, p, "destination")
}

func (c *Controller) setLocation(ctx context.Context, tripID uint, p models.LatLng, kind string) (models.TripLocation, error) {
	loc, err := c.resolve(ctx, p)
	if err != nil {
		return models.TripLocation{}, err
	}
	if tripID == 0 {
		return loc, nil
	}
	endpoint := fmt.Sprintf("/trips/%d/%s/", tripID, kind)
	if err := c.api.Do(ctx, http.MethodPatch, endpoint, loc, nil); err != nil {
		return models.TripLocation{}, err
	}
	c.reloadQuietly(ctx)
	return loc, nil
}

func (c *Controller) resolve(ctx context.Context, p models.LatLng) (models.TripLocation, error) {
	place, err := c.geocoder.ReverseGeocode(ctx, p)
	if err != nil {
		return models.TripLocation{}, fmt.Errorf("reverse geocode %s: %w", p, err)
	}
	name := place.PlaceName
	if name == "" {
		name = p.String()
	}
	address := place.Address
	if address == "" {
		address = name
	}
	return models.TripLocation{Name: name, Address: address, Lat: ptr(p.Lat), Lng: ptr(p.Lng)}, nil
}

// PreviewRoute takes the "lat,lng" text the user typed. Anything else fails
// before the route endpoint is called.
func (c *Controller) PreviewRoute(ctx context.Context, origin, destination string) (models.Route, error) {
	a, ok := models.ParseLatLng(origin)
	if !ok {
		return models.Route{}, ErrCoordinatesRequired
	}
	b, ok := models.ParseLatLng(destination)
	if !ok {
		return models.Route{}, ErrCoordinatesRequired
	}
	return c.PreviewRouteBetween(ctx, a, b)
}

func (c *Controller) PreviewRouteBetween(ctx context.Context, origin, destination models.LatLng) (models.Route, error) {
	return c.router.Route(ctx, models.RouteRequest{Origin: origin, Destination: destination})
}

// CompleteTrip ends the trip now. The driver profile and trip list are
// refreshed afterwards since completion changes the HOS totals.
func (c *Controller) CompleteTrip(ctx context.Context, id uint) (models.Trip, error) {
	if err := c.checkLive(id); err != nil {
		return models.Trip{}, err
	}
	body := map[string]string{"end_time": c.now().UTC().Format(time.RFC3339)}
	trip, err := apiclient.Post[models.Trip](ctx, c.api, fmt.Sprintf("/trips/%d/complete/", id), body)
	if err != nil {
		return models.Trip{}, err
	}
	c.log.WithFields(logrus.Fields{"trip_id": id, "hours": trip.TotalTripHours}).Info("Trip completed")
	c.afterTransition(ctx)
	return trip, nil
}

// CancelTrip asks for confirmation first. There is no undo.
func (c *Controller) CancelTrip(ctx context.Context, id uint) (models.Trip, error) {
	if err := c.checkLive(id); err != nil {
		return models.Trip{}, err
	}
	if c.confirmer == nil || !c.confirmer.Confirm(ctx, cancelPrompt) {
		return models.Trip{}, ErrCancelDeclined
	}
	trip, err := apiclient.Post[models.Trip](ctx, c.api, fmt.Sprintf("/trips/%d/cancel/", id), struct{}{})
	if err != nil {
		return models.Trip{}, err
	}
	c.log.WithField("trip_id", id).Info("Trip cancelled")
	c.afterTransition(ctx)
	return trip, nil
}

// SendLocation posts one position sample for the trip.
func (c *Controller) SendLocation(ctx context.Context, tripID uint, sample models.LocationSample) error {
	return c.api.Do(ctx, http.MethodPost, fmt.Sprintf("/trips/%d/location/", tripID), sample, nil)
}

func (c *Controller) checkLive(id uint) error {
	if t, ok := c.Trip(id); ok && t.Status.Terminal() {
		return ErrTripTerminal
	}
	return nil
}

func (c *Controller) afterTransition(ctx context.Context) {
	if c.refresher != nil {
		if _, err := c.refresher.RefreshUser(ctx); err != nil {
			c.log.WithError(err).Warn("Could not refresh driver after trip change")
		}
	}
	c.reloadQuietly(ctx)
}

func (c *Controller) reloadQuietly(ctx context.Context) {
	_ = c.trips.Reload(ctx)
}
