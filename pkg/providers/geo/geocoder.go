package geo

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/providers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent    = "wayfinder/1.0"
)

// ErrNotFound is returned when a query matches no place.
var ErrNotFound = errors.New("place not found")

// Place is a geocoded location.
type Place struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

func (p Place) Point() Point {
	return Point{Lat: p.Lat, Lon: p.Lon}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocoder resolves free text place names with the OpenStreetMap Nominatim
// search API.
type Geocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

type GeocoderOption func(*Geocoder)

func WithBaseURL(u string) GeocoderOption {
	return func(g *Geocoder) { g.baseURL = u }
}

func WithHTTPClient(hc *http.Client) GeocoderOption {
	return func(g *Geocoder) { g.httpClient = hc }
}

// WithUserAgent sets the User-Agent header Nominatim requires.
func WithUserAgent(ua string) GeocoderOption {
	return func(g *Geocoder) { g.userAgent = ua }
}

func NewGeocoder(opts ...GeocoderOption) *Geocoder {
	g := &Geocoder{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    DefaultNominatimURL,
		userAgent:  DefaultUserAgent,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Geocode returns the best match for query, or ErrNotFound.
func (g *Geocoder) Geocode(ctx context.Context, query string) (*Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")

	log.Debug().Str("query", query).Msg("geo: geocoding")

	var results []nominatimResult
	err := providers.GetJSON(ctx, g.httpClient, g.baseURL+"?"+q.Encode(),
		map[string]string{"User-Agent": g.userAgent}, &results)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "%q", query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, &retry.MalformedResponseError{Err: errors.Wrap(err, "latitude")}
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, &retry.MalformedResponseError{Err: errors.Wrap(err, "longitude")}
	}
	return &Place{Name: query, DisplayName: results[0].DisplayName, Lat: lat, Lon: lon}, nil
}
