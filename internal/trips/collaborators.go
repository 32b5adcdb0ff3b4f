package trips

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"driver_logbook/internal/apiclient"
	"driver_logbook/internal/models"
)

// Geocoder resolves a point to a named place.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p models.LatLng) (models.Place, error)
}

// Router previews a drivable route between two points.
type Router interface {
	Route(ctx context.Context, req models.RouteRequest) (models.Route, error)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Refresher re-reads the signed-in driver after a mutation changes the
// server-side HOS totals.
type Refresher interface {
	RefreshUser(ctx context.Context) (*models.Driver, error)
}

// APIGeocoder geocodes through the logbook API search endpoints.
type APIGeocoder struct {
	API *apiclient.Client
}

func (g APIGeocoder) ReverseGeocode(ctx context.Context, p models.LatLng) (models.Place, error) {
	q := url.Values{
		"lat": {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"lng": {strconv.FormatFloat(p.Lng, 'f', -1, 64)},
	}
	return apiclient.Get[models.Place](ctx, g.API, "/search/reverse/", apiclient.WithQuery(q))
}

// SearchAddress looks up free-text addresses.
func (g APIGeocoder) SearchAddress(ctx context.Context, query string) ([]models.Place, error) {
	page, err := apiclient.Get[models.Page[models.Place]](ctx, g.API, "/search/address/",
		apiclient.WithQuery(url.Values{"q": {query}}))
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// APIRouter previews routes through POST /route/.
type APIRouter struct {
	API *apiclient.Client
}

func (r APIRouter) Route(ctx context.Context, req models.RouteRequest) (models.Route, error) {
	var route models.Route
	err := r.API.Do(ctx, http.MethodPost, "/route/", req, &route)
	return route, err
}
