package geo

import (
	"context"
	"fmt"

	"github.com/go-go-golems/wayfinder/pkg/inference/normalize"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/pkg/errors"
)

const (
	DistanceToolName = "calculate_distance_tool"
	NotFoundMessage  = "Could not find destination."
)

// DistanceSpec returns the spec of the distance tool for the given origin.
func DistanceSpec(originName string) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        DistanceToolName,
		Description: fmt.Sprintf("Calculate straight-line (haversine) distance in miles from %s to a provided destination.", originName),
		Args: []tools.ArgSpec{
			{Name: "destination_query", Type: tools.ArgString, Description: "the destination to geocode"},
		},
		Network: true,
	}
}

// DistanceResult is the output of the distance tool.
type DistanceResult struct {
	Destination   string  `json:"destination"`
	DistanceMiles float64 `json:"distance_miles"`
}

type distanceIn struct {
	DestinationQuery string `json:"destination_query"`
}

// Distance geocodes the destination and measures its distance from origin,
// rounded to two decimals.
func Distance(ctx context.Context, g *Geocoder, origin Point, destination string) (*DistanceResult, error) {
	place, err := g.Geocode(ctx, destination)
	if err != nil {
		return nil, err
	}
	return &DistanceResult{
		Destination:   destination,
		DistanceMiles: Round2(Haversine(origin, place.Point())),
	}, nil
}

// RegisterDistanceTool adds calculate_distance_tool to the registry. An
// unknown destination is reported as an error marker result, not as a failed
// call, so it is not retried.
func RegisterDistanceTool(reg tools.Registry, g *Geocoder, originName string, origin Point) error {
	return reg.Register(DistanceSpec(originName), tools.NewTypedFunc(func(ctx context.Context, in distanceIn) (any, error) {
		res, err := Distance(ctx, g, origin, in.DestinationQuery)
		if errors.Is(err, ErrNotFound) {
			return normalize.ErrorMarker(NotFoundMessage), nil
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}))
}
