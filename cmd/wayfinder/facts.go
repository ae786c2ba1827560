package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/present"
	"github.com/go-go-golems/wayfinder/pkg/prompts"
	"github.com/spf13/cobra"
)

const readyBanner = "\nTravel Assistant ready! (Type 'exit' to quit)"

// factsAgent answers with three facts about a location, without tools.
type factsAgent struct {
	completer planner.Completer
	presenter *present.Presenter
}

func (a *factsAgent) handle(ctx context.Context, line string, w io.Writer) error {
	answer, err := a.completer.Complete(ctx, prompts.FactsSystem(), line)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n", a.presenter.Facts(answer))
	return nil
}

func newFactsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "facts",
		Short: "Ask for three facts about a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			completer, err := newCompleter(s)
			if err != nil {
				return err
			}
			agent := &factsAgent{
				completer: completer,
				presenter: newPresenter(cmd, s),
			}
			r := &repl{banner: readyBanner, prompt: "User: ", handle: agent.handle}
			return r.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
