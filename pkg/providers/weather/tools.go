package weather

import (
	"context"

	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
)

var GetWeatherSpec = tools.ToolSpec{
	Name:        "get_weather",
	Description: "Fetch the current weather at a coordinate. Returns temperature in °C, the WMO weather code and a description.",
	Args: []tools.ArgSpec{
		{Name: "lat", Type: tools.ArgNumber, Description: "latitude in decimal degrees"},
		{Name: "lon", Type: tools.ArgNumber, Description: "longitude in decimal degrees"},
	},
	Network: true,
}

var ConvertCToFSpec = tools.ToolSpec{
	Name:        "convert_c_to_f",
	Description: "Convert a temperature from Celsius to Fahrenheit.",
	Args: []tools.ArgSpec{
		{Name: "c", Type: tools.ArgNumber, Description: "temperature in °C"},
	},
}

type getWeatherIn struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type convertIn struct {
	C float64 `json:"c"`
}

// Register adds get_weather and convert_c_to_f to the registry.
func Register(reg tools.Registry, client *Client) error {
	if err := reg.Register(GetWeatherSpec, tools.NewTypedFunc(func(ctx context.Context, in getWeatherIn) (*Observation, error) {
		return client.Current(ctx, in.Lat, in.Lon)
	})); err != nil {
		return err
	}
	return reg.Register(ConvertCToFSpec, tools.NewTypedFunc(func(_ context.Context, in convertIn) (float64, error) {
		return CelsiusToFahrenheit(in.C), nil
	}))
}
