package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/go-go-golems/wayfinder/pkg/providers/geo"
	"github.com/go-go-golems/wayfinder/pkg/settings"
	"github.com/go-go-golems/wayfinder/pkg/toolserver"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// localTools lists every tool the assistants can use in process.
func localTools(ctx context.Context, s *settings.Settings) ([]tools.ToolSpec, error) {
	local := *s
	local.Providers.ToolServer = ""
	reg, err := newWeatherRegistry(ctx, &local)
	if err != nil {
		return nil, err
	}
	if err := geo.RegisterDistanceTool(reg, newGeocoder(s), s.Origin.Name, s.Origin.Point()); err != nil {
		return nil, err
	}
	return s.Tools.FilterTools(reg.List()), nil
}

func remoteTools(ctx context.Context, s *settings.Settings, url string) ([]tools.ToolSpec, error) {
	client := toolserver.NewClient(url, toolserver.WithHTTPClient(newHTTPClient(s)))
	descriptors, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	specs := make([]tools.ToolSpec, 0, len(descriptors))
	for _, d := range descriptors {
		spec, err := toolserver.SpecFromDescriptor(d)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func printTools(w io.Writer, specs []tools.ToolSpec, output string) error {
	switch output {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(specs); err != nil {
			return errors.Wrap(err, "could not encode tools")
		}
		return enc.Close()
	case "text", "":
		for _, spec := range specs {
			fmt.Fprintf(w, "%s: %s\n", spec.Name, spec.Description)
		}
		return nil
	default:
		return errors.Errorf("unknown output format %q", output)
	}
}

func newToolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the assistant tools",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the name and description of every tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			server, _ := cmd.Flags().GetString("server")
			if server == "" {
				server = s.Providers.ToolServer
			}
			output, _ := cmd.Flags().GetString("output")

			var specs []tools.ToolSpec
			if server != "" {
				specs, err = remoteTools(cmd.Context(), s, server)
			} else {
				specs, err = localTools(cmd.Context(), s)
			}
			if err != nil {
				return err
			}
			return printTools(cmd.OutOrStdout(), specs, output)
		},
	}
	list.Flags().String("server", "", "List the tools of this tool server instead of the local ones")
	list.Flags().String("output", "text", "Output format (text, yaml)")

	cmd.AddCommand(list)
	return cmd
}
