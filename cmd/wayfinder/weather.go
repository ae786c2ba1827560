package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/wayfinder/pkg/events"
	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/inference/toolloop"
	"github.com/go-go-golems/wayfinder/pkg/present"
	"github.com/go-go-golems/wayfinder/pkg/prompts"
	"github.com/go-go-golems/wayfinder/pkg/providers/geo"
	"github.com/go-go-golems/wayfinder/pkg/providers/weather"
	"github.com/go-go-golems/wayfinder/pkg/rag"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const noCityDetected = "No city detected; please try again."

type geocoder interface {
	Geocode(ctx context.Context, query string) (*geo.Place, error)
}

// geocode resolves query through the invoker so rate limited and unavailable
// geocoding backends are retried.
func geocode(ctx context.Context, inv *retry.Invoker, g geocoder, query string) (*geo.Place, error) {
	return retry.Do(ctx, inv, func(ctx context.Context) (*geo.Place, error) {
		return g.Geocode(ctx, query)
	})
}

// weatherAgent extracts the city of a question, geocodes it and lets the
// planner look up the weather with get_weather and convert_c_to_f. The trace
// is printed through the event sinks of the context.
type weatherAgent struct {
	extractor planner.Completer
	geocoder  geocoder
	invoker   *retry.Invoker
	loop      *toolloop.Loop
	presenter *present.Presenter
}

func (a *weatherAgent) handle(ctx context.Context, line string, w io.Writer) error {
	reply, err := a.extractor.Complete(ctx, "", prompts.CityExtraction(line))
	if err != nil {
		return errors.Wrap(err, "city extraction failed")
	}
	city := rag.CleanCity(reply)
	if city == "" {
		fmt.Fprintln(w, noCityDetected)
		return nil
	}

	place, err := geocode(ctx, a.invoker, a.geocoder, city)
	if errors.Is(err, geo.ErrNotFound) {
		fmt.Fprintf(w, "Could not find %s; please try again.\n", city)
		return nil
	}
	if err != nil {
		return err
	}
	log.Debug().Str("city", city).Float64("lat", place.Lat).Float64("lon", place.Lon).Msg("weather: city geocoded")

	question := fmt.Sprintf("What is the current weather in %s (lat %.4f, lon %.4f)?", city, place.Lat, place.Lon)
	ep, err := a.loop.Run(ctx, question)
	answer, err := episodeAnswer(ep, err)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, weatherFinal(a.presenter, ep, answer))
	return nil
}

// weatherFinal renders the observed conditions and temperature, falling back
// to the planner answer when the tools did not both report.
func weatherFinal(p *present.Presenter, ep *toolloop.Episode, answer string) string {
	obs, ok := ep.LastObservation(weather.GetWeatherSpec.Name)
	if !ok {
		return "Final: " + answer
	}
	current, _ := obs.Value.(map[string]any)
	conditions, _ := current["conditions"].(string)
	if conditions == "" {
		return "Final: " + answer
	}
	if conv, ok := ep.LastObservation(weather.ConvertCToFSpec.Name); ok {
		if f, ok := floatValue(conv.Value); ok {
			return p.Weather(conditions, f)
		}
	}
	if c, ok := floatValue(current["temperature"]); ok {
		return p.Weather(conditions, weather.CelsiusToFahrenheit(c))
	}
	return "Final: " + answer
}

func newWeatherCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "weather",
		Short: "Ask about the current weather in a city, printing the Thought/Action/Observation trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			reg, err := newWeatherRegistry(ctx, s)
			if err != nil {
				return err
			}
			system, err := prompts.AgentSystem(s.Tools.FilterTools(reg.List()))
			if err != nil {
				return err
			}
			p, err := newPlanner(s)
			if err != nil {
				return err
			}
			extractor, err := newCompleter(s)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ctx, stop, err := traceRouter(ctx, out, events.WithoutFinal())
			if err != nil {
				return err
			}
			defer func() {
				if err := stop(); err != nil {
					log.Warn().Err(err).Msg("could not close event router")
				}
			}()

			agent := &weatherAgent{
				extractor: extractor,
				geocoder:  newGeocoder(s),
				invoker:   newInvoker(s),
				loop:      newLoop(s, p, reg, system),
				presenter: newPresenter(cmd, s),
			}
			r := &repl{
				banner: "Weather TAO agent (LLM extraction, 'exit' to quit)",
				prompt: "Ask about the weather: ",
				handle: agent.handle,
			}
			return r.run(ctx, cmd.InOrStdin(), out)
		},
	}
}
