// Package settings holds the configuration of the wayfinder commands, loaded
// from config file, environment and flags through viper.
package settings

import (
	"strings"
	"time"

	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/inference/toolloop"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/go-go-golems/wayfinder/pkg/providers/geo"
	"github.com/go-go-golems/wayfinder/pkg/providers/weather"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
	BackendHash   = "hash"
)

type PlannerSettings struct {
	// Backend is openai (structured tool calls against any OpenAI compatible
	// endpoint) or ollama (text protocol).
	Backend     string  `mapstructure:"backend" yaml:"backend"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base-url" yaml:"base-url"`
	APIKey      string  `mapstructure:"api-key" yaml:"-"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

type EmbeddingsSettings struct {
	// Backend is ollama, openai or hash (offline, no model).
	Backend    string `mapstructure:"backend" yaml:"backend"`
	Model      string `mapstructure:"model" yaml:"model"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
	CacheSize  int    `mapstructure:"cache-size" yaml:"cache-size"`
}

type OriginSettings struct {
	Name string  `mapstructure:"name" yaml:"name"`
	Lat  float64 `mapstructure:"lat" yaml:"lat"`
	Lon  float64 `mapstructure:"lon" yaml:"lon"`
}

func (o OriginSettings) Point() geo.Point {
	return geo.Point{Lat: o.Lat, Lon: o.Lon}
}

type ProviderSettings struct {
	WeatherURL   string        `mapstructure:"weather-url" yaml:"weather-url"`
	NominatimURL string        `mapstructure:"nominatim-url" yaml:"nominatim-url"`
	UserAgent    string        `mapstructure:"user-agent" yaml:"user-agent"`
	HTTPTimeout  time.Duration `mapstructure:"http-timeout" yaml:"http-timeout"`
	// ToolServer, when set, is the URL of a tool server whose tools replace
	// the local weather tools.
	ToolServer string `mapstructure:"tool-server" yaml:"tool-server"`
}

type RAGSettings struct {
	// Corpus is a .yaml or plain text file. Empty uses the bundled directory.
	Corpus           string `mapstructure:"corpus" yaml:"corpus"`
	TopK             int    `mapstructure:"top-k" yaml:"top-k"`
	MaxContextTokens int    `mapstructure:"max-context-tokens" yaml:"max-context-tokens"`
	Encoding         string `mapstructure:"encoding" yaml:"encoding"`
}

type ServerSettings struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type Settings struct {
	Planner    PlannerSettings     `mapstructure:"planner" yaml:"planner"`
	Embeddings EmbeddingsSettings  `mapstructure:"embeddings" yaml:"embeddings"`
	Loop       toolloop.LoopConfig `mapstructure:"loop" yaml:"loop"`
	Retry      retry.Policy        `mapstructure:"retry" yaml:"retry"`
	Tools      tools.ToolConfig    `mapstructure:"tools" yaml:"tools"`
	Origin     OriginSettings      `mapstructure:"origin" yaml:"origin"`
	Providers  ProviderSettings    `mapstructure:"providers" yaml:"providers"`
	RAG        RAGSettings         `mapstructure:"rag" yaml:"rag"`
	Server     ServerSettings      `mapstructure:"server" yaml:"server"`
}

// Defaults talk to a local Ollama through its OpenAI compatible endpoint.
func Defaults() *Settings {
	return &Settings{
		Planner: PlannerSettings{
			Backend: BackendOpenAI,
			Model:   "llama3.2",
			BaseURL: "http://localhost:11434/v1",
			// Ollama ignores the key but the client needs one
			APIKey: "ollama",
		},
		Embeddings: EmbeddingsSettings{
			Backend:    BackendOllama,
			Model:      "all-minilm",
			Dimensions: 384,
			CacheSize:  1000,
		},
		Loop:  toolloop.DefaultLoopConfig(),
		Retry: retry.DefaultPolicy(),
		Tools: tools.DefaultToolConfig(),
		Origin: OriginSettings{
			Name: "Raleigh, NC",
			Lat:  geo.Raleigh.Lat,
			Lon:  geo.Raleigh.Lon,
		},
		Providers: ProviderSettings{
			WeatherURL:   weather.DefaultBaseURL,
			NominatimURL: geo.DefaultNominatimURL,
			UserAgent:    "SimpleAgent/1.0",
			HTTPTimeout:  15 * time.Second,
		},
		RAG: RAGSettings{
			TopK:             1,
			MaxContextTokens: 1024,
			Encoding:         "cl100k_base",
		},
		Server: ServerSettings{Addr: ":8000"},
	}
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by viper.AutomaticEnv.
func SetDefaults(v *viper.Viper) error {
	m := map[string]interface{}{}
	cfg := &mapstructure.DecoderConfig{
		Result:  &m,
		TagName: "mapstructure",
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	if err := dec.Decode(Defaults()); err != nil {
		return errors.Wrap(err, "could not flatten defaults")
	}
	setFlattened(v, "", m)
	return nil
}

func setFlattened(v *viper.Viper, prefix string, m map[string]interface{}) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]interface{}); ok {
			setFlattened(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}

// ConfigureEnv makes WAYFINDER_PLANNER_BASE_URL override planner.base-url.
func ConfigureEnv(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings from v.
func Load(v *viper.Viper) (*Settings, error) {
	s := Defaults()
	err := v.Unmarshal(s, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if len(s.Tools.AllowedTools) == 0 {
		s.Tools.AllowedTools = nil
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	switch s.Planner.Backend {
	case BackendOpenAI, BackendOllama:
	default:
		return errors.Errorf("unknown planner backend %q", s.Planner.Backend)
	}
	switch s.Embeddings.Backend {
	case BackendOpenAI, BackendOllama, BackendHash:
	default:
		return errors.Errorf("unknown embeddings backend %q", s.Embeddings.Backend)
	}
	if s.Loop.MaxSteps < 1 {
		return errors.Errorf("loop.max-steps must be at least 1, got %d", s.Loop.MaxSteps)
	}
	if s.Retry.MaxAttempts < 1 {
		return errors.Errorf("retry.max-attempts must be at least 1, got %d", s.Retry.MaxAttempts)
	}
	return nil
}
