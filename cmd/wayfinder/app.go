package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/embeddings"
	"github.com/go-go-golems/wayfinder/pkg/events"
	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/inference/toolloop"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/go-go-golems/wayfinder/pkg/present"
	"github.com/go-go-golems/wayfinder/pkg/providers/geo"
	"github.com/go-go-golems/wayfinder/pkg/providers/weather"
	"github.com/go-go-golems/wayfinder/pkg/settings"
	"github.com/go-go-golems/wayfinder/pkg/toolserver"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// loadSettings decodes the settings and applies the root command shortcuts.
func loadSettings(cmd *cobra.Command) (*settings.Settings, error) {
	s, err := settings.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		s.Planner.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("model") {
		s.Planner.Model, _ = flags.GetString("model")
	}
	if flags.Changed("base-url") {
		s.Planner.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("max-steps") {
		s.Loop.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if flags.Changed("tool-server") {
		s.Providers.ToolServer, _ = flags.GetString("tool-server")
	}
	if s.Planner.APIKey == "" {
		s.Planner.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return s, s.Validate()
}

func newHTTPClient(s *settings.Settings) *http.Client {
	return &http.Client{Timeout: s.Providers.HTTPTimeout}
}

func newInvoker(s *settings.Settings) *retry.Invoker {
	return retry.NewInvoker(retry.WithPolicy(s.Retry))
}

func newOpenAIClient(s *settings.Settings) (*openai.Client, error) {
	return planner.MakeClient(s.Planner.APIKey, s.Planner.BaseURL)
}

var ollamaEnvMu sync.Mutex

// newOllamaClient honors OLLAMA_HOST, which planner.base-url overrides. The
// pinned ollama api only builds clients from the environment, so the override
// is applied while the client is built and the previous value restored.
func newOllamaClient(s *settings.Settings) (*api.Client, error) {
	ollamaEnvMu.Lock()
	defer ollamaEnvMu.Unlock()

	if s.Planner.BaseURL != "" {
		host := strings.TrimSuffix(strings.TrimSuffix(s.Planner.BaseURL, "/"), "/v1")
		prev, had := os.LookupEnv("OLLAMA_HOST")
		if err := os.Setenv("OLLAMA_HOST", host); err != nil {
			return nil, err
		}
		defer func() {
			if had {
				_ = os.Setenv("OLLAMA_HOST", prev)
			} else {
				_ = os.Unsetenv("OLLAMA_HOST")
			}
		}()
	}
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "could not create ollama client")
	}
	return client, nil
}

func newPlanner(s *settings.Settings) (planner.Planner, error) {
	switch s.Planner.Backend {
	case settings.BackendOllama:
		client, err := newOllamaClient(s)
		if err != nil {
			return nil, err
		}
		return planner.NewOllama(client, s.Planner.Model, s.Planner.Temperature), nil
	default:
		client, err := newOpenAIClient(s)
		if err != nil {
			return nil, err
		}
		return planner.NewOpenAI(client, s.Planner.Model, float32(s.Planner.Temperature)), nil
	}
}

func newCompleter(s *settings.Settings) (planner.Completer, error) {
	switch s.Planner.Backend {
	case settings.BackendOllama:
		client, err := newOllamaClient(s)
		if err != nil {
			return nil, err
		}
		return planner.NewOllamaCompleter(client, s.Planner.Model, s.Planner.Temperature), nil
	default:
		client, err := newOpenAIClient(s)
		if err != nil {
			return nil, err
		}
		return planner.NewOpenAICompleter(client, s.Planner.Model, float32(s.Planner.Temperature)), nil
	}
}

// newPresenter styles answers only when the command writes to a terminal.
func newPresenter(cmd *cobra.Command, s *settings.Settings) *present.Presenter {
	return present.ForWriter(cmd.OutOrStdout(), s.Origin.Name)
}

func newGeocoder(s *settings.Settings) *geo.Geocoder {
	return geo.NewGeocoder(
		geo.WithBaseURL(s.Providers.NominatimURL),
		geo.WithUserAgent(s.Providers.UserAgent),
		geo.WithHTTPClient(newHTTPClient(s)),
	)
}

// newWeatherRegistry holds get_weather and convert_c_to_f, served locally or
// by the configured tool server.
func newWeatherRegistry(ctx context.Context, s *settings.Settings) (*tools.InMemoryRegistry, error) {
	reg := tools.NewInMemoryRegistry()
	if s.Providers.ToolServer != "" {
		client := toolserver.NewClient(s.Providers.ToolServer, toolserver.WithHTTPClient(newHTTPClient(s)))
		if _, err := toolserver.RegisterRemoteTools(ctx, reg, client); err != nil {
			return nil, err
		}
		return reg, nil
	}
	client := weather.NewClient(
		weather.WithBaseURL(s.Providers.WeatherURL),
		weather.WithHTTPClient(newHTTPClient(s)),
	)
	if err := weather.Register(reg, client); err != nil {
		return nil, err
	}
	return reg, nil
}

func newEmbedder(s *settings.Settings) (embeddings.Provider, error) {
	var p embeddings.Provider
	switch s.Embeddings.Backend {
	case settings.BackendHash:
		p = embeddings.NewHashProvider(s.Embeddings.Dimensions)
	case settings.BackendOpenAI:
		client, err := newOpenAIClient(s)
		if err != nil {
			return nil, err
		}
		p = embeddings.NewOpenAIProvider(client, openai.EmbeddingModel(s.Embeddings.Model), s.Embeddings.Dimensions)
	default:
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = strings.TrimSuffix(strings.TrimSuffix(s.Planner.BaseURL, "/"), "/v1")
		}
		p = embeddings.NewOllamaProvider(host, s.Embeddings.Model, s.Embeddings.Dimensions,
			embeddings.WithOllamaHTTPClient(newHTTPClient(s)),
			embeddings.WithOllamaInvoker(newInvoker(s)))
	}
	return embeddings.NewCachedProvider(p, s.Embeddings.CacheSize), nil
}

func newLoop(s *settings.Settings, p planner.Planner, reg tools.Registry, systemPrompt string) *toolloop.Loop {
	return toolloop.New(
		toolloop.WithPlanner(p),
		toolloop.WithRegistry(reg),
		toolloop.WithInvoker(newInvoker(s)),
		toolloop.WithLoopConfig(s.Loop),
		toolloop.WithToolConfig(s.Tools),
		toolloop.WithSystemPrompt(systemPrompt),
		toolloop.WithSnapshotHook(logSnapshot),
	)
}

func logSnapshot(_ context.Context, conv *conversation.Conversation, phase string) {
	if zerolog.GlobalLevel() > zerolog.TraceLevel {
		return
	}
	turns := conv.Turns()
	last := turns[len(turns)-1]
	log.Trace().
		Str("phase", phase).
		Int("turns", len(turns)).
		Str("last_role", string(last.Role)).
		Str("last_text", last.Text).
		Msg("conversation snapshot")
}

// traceRouter runs an event router printing the episode trace to w. The
// returned context carries the router's sink; stop shuts the router down.
func traceRouter(ctx context.Context, w io.Writer, opts ...events.TracePrinterOption) (context.Context, func() error, error) {
	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return nil, nil, err
	}
	printer := events.NewTracePrinter(w, opts...)
	router.AddHandler("trace", "episode", printer.Handler())

	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	<-router.Running()

	stop := func() error {
		cancel()
		closeErr := router.Close()
		if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("event router stopped with an error")
		}
		return closeErr
	}
	return events.WithEventSinks(ctx, router.Sink("episode")), stop, nil
}
