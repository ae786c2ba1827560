package rag

import (
	"context"
	"strings"

	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/prompts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// KnownCities are the office cities recognized directly in snippets.
var KnownCities = []string{
	"New York", "San Francisco", "Chicago", "Austin", "Boston",
	"London", "Toronto", "Tokyo", "Sydney", "Berlin",
}

// ExtractKnownCity returns the first known city mentioned in the snippets,
// scanning snippets in rank order.
func ExtractKnownCity(snippets []string) (string, bool) {
	for _, s := range snippets {
		lower := strings.ToLower(s)
		for _, city := range KnownCities {
			if strings.Contains(lower, strings.ToLower(city)) {
				return city, true
			}
		}
	}
	return "", false
}

// OfficeFacts returns the snippets mentioning city.
func OfficeFacts(snippets []string, city string) []string {
	var out []string
	needle := strings.ToLower(city)
	for _, s := range snippets {
		if strings.Contains(strings.ToLower(s), needle) {
			out = append(out, s)
		}
	}
	return out
}

// CityDetector finds the city a question is about: first among the known
// cities in the retrieved snippets, then by asking the completer.
type CityDetector struct {
	completer planner.Completer
}

func NewCityDetector(c planner.Completer) *CityDetector {
	return &CityDetector{completer: c}
}

// Detect returns "" when no city was found.
func (d *CityDetector) Detect(ctx context.Context, question string, snippets []string) (string, error) {
	if city, ok := ExtractKnownCity(snippets); ok {
		log.Debug().Str("city", city).Msg("rag: city found in snippets")
		return city, nil
	}
	if d.completer == nil {
		return "", nil
	}

	reply, err := d.completer.Complete(ctx, prompts.CityFallbackSystem, question)
	if err != nil {
		return "", errors.Wrap(err, "city detection failed")
	}
	city := CleanCity(reply)
	log.Debug().Str("reply", reply).Str("city", city).Msg("rag: city detected by model")
	return city, nil
}

// CleanCity trims a model reply down to a city name. It returns "" for the
// NONE sentinel and for replies shorter than 3 characters.
func CleanCity(reply string) string {
	city := strings.TrimSpace(reply)
	if i := strings.IndexByte(city, '\n'); i >= 0 {
		city = strings.TrimSpace(city[:i])
	}
	city = strings.Trim(city, " .\"'`*")
	if strings.EqualFold(city, prompts.NoCity) || len([]rune(city)) < 3 {
		return ""
	}
	return city
}
