package weather

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

const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Observation is the current weather at a coordinate.
type Observation struct {
	Temperature float64 `json:"temperature"`
	Code        int     `json:"code"`
	Conditions  string  `json:"conditions"`
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		WeatherCode *int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Client reads the current weather from the Open-Meteo forecast API. A single
// call to Current performs exactly one HTTP request; retries are left to the
// caller's invoker.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    DefaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current_weather", "true")
	u := c.baseURL + "?" + q.Encode()

	log.Debug().Float64("lat", lat).Float64("lon", lon).Msg("weather: fetching current weather")

	var resp forecastResponse
	if err := providers.GetJSON(ctx, c.httpClient, u, nil, &resp); err != nil {
		return nil, err
	}
	cw := resp.CurrentWeather
	if cw == nil || cw.Temperature == nil || cw.WeatherCode == nil {
		return nil, &retry.MalformedResponseError{Err: errors.New("response has no current_weather temperature and weathercode")}
	}

	return &Observation{
		Temperature: *cw.Temperature,
		Code:        *cw.WeatherCode,
		Conditions:  Conditions(*cw.WeatherCode),
	}, nil
}
