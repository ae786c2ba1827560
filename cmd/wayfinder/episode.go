package main

import (
	"fmt"

	"github.com/go-go-golems/wayfinder/pkg/inference/toolloop"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// episodeAnswer is the text shown for a finished episode. An exhausted step
// budget still shows the partial answer and an unknown tool a plain apology.
func episodeAnswer(ep *toolloop.Episode, err error) (string, error) {
	if err == nil {
		return ep.Answer, nil
	}
	if errors.Is(err, toolloop.ErrStepBudgetExceeded) && ep != nil {
		log.Debug().Err(err).Msg("showing partial answer")
		return ep.Answer, nil
	}
	var unknown *tools.UnknownToolError
	if errors.As(err, &unknown) {
		return fmt.Sprintf("Sorry, I can't do that: the tool %q is not available.", unknown.Name), nil
	}
	return "", err
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func floatValue(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
