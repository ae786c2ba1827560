package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/inference/toolloop"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/go-go-golems/wayfinder/pkg/present"
	"github.com/go-go-golems/wayfinder/pkg/prompts"
	"github.com/go-go-golems/wayfinder/pkg/providers/geo"
	"github.com/go-go-golems/wayfinder/pkg/settings"
	"github.com/spf13/cobra"
)

// travelAgent answers with facts about a destination and its distance from
// the origin, measured by calculate_distance_tool.
type travelAgent struct {
	loop      *toolloop.Loop
	presenter *present.Presenter
}

func (a *travelAgent) handle(ctx context.Context, line string, w io.Writer) error {
	ep, err := a.loop.Run(ctx, line)
	answer, err := episodeAnswer(ep, err)
	if err != nil {
		return err
	}

	for _, o := range ep.Observations {
		fmt.Fprintln(w, a.presenter.ToolCall(o.Tool, conversation.RenderObservation(o.Args)))
		fmt.Fprintln(w, a.presenter.ToolResult(conversation.RenderObservation(o.Value)))
	}

	destination := ""
	miles, hasDistance := 0.0, false
	if o, ok := ep.LastObservation(geo.DistanceToolName); ok {
		destination = stringArg(o.Args, "destination_query")
		miles, hasDistance = floatValue(o.Value)
	}
	fmt.Fprintf(w, "\n%s\n\n%s\n", a.presenter.Header(),
		a.presenter.TravelAnswer(answer, destination, miles, hasDistance))
	return nil
}

// travelSystemPrompt adds the text protocol for planners without native tool
// calls.
func travelSystemPrompt(s *settings.Settings, reg tools.Registry) (string, error) {
	system := prompts.TravelSystem(s.Origin.Name)
	if s.Planner.Backend != settings.BackendOllama {
		return system, nil
	}
	agent, err := prompts.AgentSystem(s.Tools.FilterTools(reg.List()))
	if err != nil {
		return "", err
	}
	return system + "\n\n" + agent, nil
}

func newTravelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "travel",
		Short: "Ask about a destination, with facts and its distance from the origin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			p, err := newPlanner(s)
			if err != nil {
				return err
			}
			reg := tools.NewInMemoryRegistry()
			if err := geo.RegisterDistanceTool(reg, newGeocoder(s), s.Origin.Name, s.Origin.Point()); err != nil {
				return err
			}
			system, err := travelSystemPrompt(s, reg)
			if err != nil {
				return err
			}
			agent := &travelAgent{
				loop:      newLoop(s, p, reg, system),
				presenter: newPresenter(cmd, s),
			}
			r := &repl{banner: readyBanner, prompt: "User: ", handle: agent.handle}
			return r.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
