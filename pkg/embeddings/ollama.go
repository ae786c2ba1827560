package embeddings

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/providers"
	"github.com/pkg/errors"
)

const DefaultOllamaURL = "http://localhost:11434"

type OllamaProvider struct {
	baseURL     string
	model       string
	dimensions  int
	concurrency int
	httpClient  *http.Client
	invoker     *retry.Invoker
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

var _ Provider = &OllamaProvider{}

type OllamaOption func(*OllamaProvider)

func WithOllamaHTTPClient(hc *http.Client) OllamaOption {
	return func(p *OllamaProvider) { p.httpClient = hc }
}

// WithOllamaInvoker retries embedding requests with the given invoker.
// Without it a request is attempted once.
func WithOllamaInvoker(inv *retry.Invoker) OllamaOption {
	return func(p *OllamaProvider) { p.invoker = inv }
}

func WithOllamaConcurrency(n int) OllamaOption {
	return func(p *OllamaProvider) { p.concurrency = n }
}

func NewOllamaProvider(baseURL string, model string, dimensions int, opts ...OllamaOption) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = "all-minilm"
	}
	if dimensions <= 0 {
		dimensions = 384 // all-minilm
	}

	p := &OllamaProvider{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		dimensions:  dimensions,
		concurrency: 4,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		invoker:     retry.NewInvoker(retry.WithPolicy(retry.Policy{MaxAttempts: 1})),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embedding, err := retry.Do(ctx, p.invoker, func(ctx context.Context) ([]float32, error) {
		var result ollamaResponse
		err := providers.PostJSON(ctx, p.httpClient, p.baseURL+"/api/embeddings", nil,
			ollamaRequest{Model: p.model, Prompt: text}, &result)
		if err != nil {
			return nil, err
		}
		if len(result.Embedding) == 0 {
			return nil, &retry.MalformedResponseError{Err: errors.New("empty embedding")}
		}
		return result.Embedding, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ollama embedding failed")
	}
	return embedding, nil
}

func (p *OllamaProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return ParallelGenerateBatchEmbeddings(ctx, p, texts, p.concurrency)
}

func (p *OllamaProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{
		Name:       p.model,
		Dimensions: p.dimensions,
	}
}
