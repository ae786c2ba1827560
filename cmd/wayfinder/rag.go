package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/present"
	"github.com/go-go-golems/wayfinder/pkg/providers/geo"
	"github.com/go-go-golems/wayfinder/pkg/rag"
	"github.com/go-go-golems/wayfinder/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ragAgent answers office questions from the indexed corpus.
type ragAgent struct {
	pipeline  *rag.Pipeline
	presenter *present.Presenter
}

func (a *ragAgent) handle(ctx context.Context, line string, w io.Writer) error {
	ans, err := a.pipeline.Answer(ctx, line)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n", a.presenter.Snippets(line, ans.Snippets))
	fmt.Fprintf(w, "%s\n\n%s\n", a.presenter.Header(), a.presenter.RAGAnswer(
		ans.City, ans.OfficeFacts, present.FactsList(ans.CityFacts), ans.DistanceMiles, ans.HasDistance))
	return nil
}

// geoDistance measures the distance from origin to a city, reporting an
// unknown city as not ok.
func geoDistance(g geocoder, inv *retry.Invoker, origin geo.Point) rag.DistanceFunc {
	return func(ctx context.Context, city string) (float64, bool, error) {
		place, err := geocode(ctx, inv, g, city)
		if errors.Is(err, geo.ErrNotFound) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, err
		}
		return geo.Round2(geo.Haversine(origin, place.Point())), true, nil
	}
}

func loadCorpus(s *settings.Settings) (*rag.Corpus, error) {
	if s.RAG.Corpus == "" {
		return rag.DefaultCorpus(), nil
	}
	return rag.LoadCorpus(s.RAG.Corpus)
}

func newRAGPipeline(ctx context.Context, s *settings.Settings, w io.Writer) (*rag.Pipeline, error) {
	corpus, err := loadCorpus(s)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(s)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(w, "\nLoading and indexing office documents...")
	index := rag.NewIndex(embedder)
	if err := index.Add(ctx, corpus.Snippets()); err != nil {
		return nil, errors.Wrap(err, "could not index corpus")
	}
	fmt.Fprintf(w, "Indexed %d office documents.\n", index.Len())

	completer, err := newCompleter(s)
	if err != nil {
		return nil, err
	}
	opts := []rag.PipelineOption{
		rag.WithTopK(s.RAG.TopK),
		rag.WithDistance(geoDistance(newGeocoder(s), newInvoker(s), s.Origin.Point())),
	}
	if s.RAG.MaxContextTokens > 0 {
		budget, err := rag.NewTokenBudget(s.RAG.Encoding, s.RAG.MaxContextTokens)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rag.WithTokenBudget(budget))
	} else {
		log.Debug().Msg("rag: no context token budget")
	}
	return rag.NewPipeline(index, completer, opts...), nil
}

func newRAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Ask about company offices, answered from the office documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("corpus") {
				s.RAG.Corpus, _ = cmd.Flags().GetString("corpus")
			}
			out := cmd.OutOrStdout()
			pipeline, err := newRAGPipeline(cmd.Context(), s, out)
			if err != nil {
				return err
			}
			agent := &ragAgent{
				pipeline:  pipeline,
				presenter: newPresenter(cmd, s),
			}
			r := &repl{banner: readyBanner, prompt: "User: ", handle: agent.handle}
			return r.run(cmd.Context(), cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().String("corpus", "", "Office documents (yaml corpus or plain text, default: bundled offices)")
	return cmd
}
