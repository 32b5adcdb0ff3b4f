package models

// Place is a geocoding result: a named point with an address.
type Place struct {
	ID        string   `json:"id,omitempty"`
	PlaceName string   `json:"place_name"`
	Address   string   `json:"address"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}

// Point returns the place coordinates when both are present.
func (p Place) Point() (LatLng, bool) {
	return pointOf(p.Lat, p.Lng)
}

// TripLocation is the body of PATCH /trips/{id}/pickup/ and /destination/.
type TripLocation struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}
