package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider embeds a text as [len(text), 1, 2] and counts calls.
type mockProvider struct {
	calls atomic.Int32
	fail  string
}

func (m *mockProvider) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if text == m.fail {
		return nil, errors.New("boom")
	}
	return []float32{float32(len(text)), 1.0, 2.0}, nil
}

func (m *mockProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return DefaultGenerateBatchEmbeddings(ctx, m, texts)
}

func (m *mockProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{Name: "mock", Dimensions: 3}
}

func TestBatchProcessing(t *testing.T) {
	t.Run("default sequential implementation", func(t *testing.T) {
		results, err := DefaultGenerateBatchEmbeddings(context.Background(), &mockProvider{}, []string{"one", "two", "three"})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, []float32{3.0, 1.0, 2.0}, results[0])
		assert.Equal(t, []float32{5.0, 1.0, 2.0}, results[2])
	})

	t.Run("parallel implementation keeps order", func(t *testing.T) {
		texts := []string{"one", "two", "three", "four", "five"}
		results, err := ParallelGenerateBatchEmbeddings(context.Background(), &mockProvider{}, texts, 2)
		require.NoError(t, err)
		require.Len(t, results, 5)
		for i, text := range texts {
			assert.Equal(t, float32(len(text)), results[i][0])
		}
	})

	t.Run("parallel error", func(t *testing.T) {
		_, err := ParallelGenerateBatchEmbeddings(context.Background(), &mockProvider{fail: "two"}, []string{"one", "two"}, 2)
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		results, err := DefaultGenerateBatchEmbeddings(context.Background(), &mockProvider{}, nil)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = ParallelGenerateBatchEmbeddings(context.Background(), &mockProvider{}, nil, 2)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestCachedProvider(t *testing.T) {
	t.Run("batch uses cache", func(t *testing.T) {
		mp := &mockProvider{}
		cp := NewCachedProvider(mp, 100)

		_, err := cp.GenerateBatchEmbeddings(context.Background(), []string{"one", "two"})
		require.NoError(t, err)
		require.Equal(t, int32(2), mp.calls.Load())

		results, err := cp.GenerateBatchEmbeddings(context.Background(), []string{"one", "three", "two"})
		require.NoError(t, err)
		assert.Equal(t, []float32{3.0, 1.0, 2.0}, results[0])
		assert.Equal(t, []float32{5.0, 1.0, 2.0}, results[1])
		assert.Equal(t, []float32{3.0, 1.0, 2.0}, results[2])
		require.Equal(t, int32(3), mp.calls.Load())
		assert.Equal(t, 3, cp.Size())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		mp := &mockProvider{}
		cp := NewCachedProvider(mp, 2)
		ctx := context.Background()

		_, _ = cp.GenerateEmbedding(ctx, "a")
		_, _ = cp.GenerateEmbedding(ctx, "bb")
		_, _ = cp.GenerateEmbedding(ctx, "a")
		_, _ = cp.GenerateEmbedding(ctx, "ccc")
		require.Equal(t, 2, cp.Size())
		require.Equal(t, int32(3), mp.calls.Load())

		_, _ = cp.GenerateEmbedding(ctx, "a")
		require.Equal(t, int32(3), mp.calls.Load())
		_, _ = cp.GenerateEmbedding(ctx, "bb")
		require.Equal(t, int32(4), mp.calls.Load())

		cp.ClearCache()
		require.Equal(t, 0, cp.Size())
	})
}

func TestHashProvider(t *testing.T) {
	h := NewHashProvider(64)
	ctx := context.Background()

	a, err := h.GenerateEmbedding(ctx, "Our Tokyo office is in Shibuya")
	require.NoError(t, err)
	b, err := h.GenerateEmbedding(ctx, "our tokyo OFFICE is in shibuya!")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	empty, err := h.GenerateEmbedding(ctx, "   ")
	require.NoError(t, err)
	require.Len(t, empty, 64)
}

func TestOllamaProvider(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[0.5,0.25]}`))
	}))
	defer srv.Close()

	inv := retry.NewInvoker(retry.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	p := NewOllamaProvider(srv.URL+"/", "", 0, WithOllamaInvoker(inv))
	e, err := p.GenerateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 0.25}, e)
	require.Equal(t, int32(2), hits.Load())
	require.Equal(t, 384, p.GetModel().Dimensions)
}

func TestOllamaProvider_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "", 0).GenerateEmbedding(context.Background(), "hello")
	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestOpenAIProvider_Batch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	p := NewOpenAIProvider(openai.NewClientWithConfig(cfg), "", 2)

	res, err := p.GenerateBatchEmbeddings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, res)
	require.Equal(t, "text-embedding-3-small", p.GetModel().Name)
}
